package tools

import (
	"context"
	"strings"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/retrieval"
)

type upsertPlanArgs struct {
	SessionID     string                                      `json:"session_id" jsonschema:"minLength=1"`
	Profile       *domain.UserProfile                         `json:"profile,omitempty"`
	Affordability *domain.AffordabilityResult                 `json:"affordability,omitempty"`
	Target        *domain.HousingTarget                       `json:"target,omitempty" description:"Validated housing goal; validate_input_data stores it when given a session_id"`
	Products      map[domain.Category]domain.RankedProductSet `json:"products,omitempty" description:"Ranked products per category; each category replaces the stored one"`
}

func (a upsertPlanArgs) Validate() error {
	const op = "upsert_plan"
	if strings.TrimSpace(a.SessionID) == "" {
		return domain.InvalidInputError(op, "session_id is required")
	}
	if a.Profile != nil && a.Profile.InvestType != "" && !a.Profile.InvestType.Valid() {
		return domain.InvalidInputError(op, "unknown invest_type %q", a.Profile.InvestType)
	}
	for c, set := range a.Products {
		if _, ok := domain.ParseCategory(string(c)); !ok {
			return domain.InvalidInputError(op, "unknown product category %q", c)
		}
		if len(set) > retrieval.MaxRanked {
			return domain.InvalidInputError(op, "category %s holds %d products, at most %d allowed", c, len(set), retrieval.MaxRanked)
		}
	}
	return nil
}

func (s *service) upsertPlanTool() (plantool.Tool, error) {
	return plantool.NewTool("upsert_plan",
		"Merge a profile, an affordability result or product selections into the session plan and return the merged plan. "+
			"Omitted fields keep their stored values.",
		func(ctx context.Context, a upsertPlanArgs) (domain.Plan, error) {
			return s.plans.Upsert(ctx, a.SessionID, domain.PlanPatch{
				Profile:       a.Profile,
				Affordability: a.Affordability,
				Target:        a.Target,
				Products:      a.Products,
			})
		},
		plantool.WithPlanWrites(), plantool.WithTags("plan"), plantool.WithVersion(Version))
}

type sessionArgs struct {
	SessionID string `json:"session_id" jsonschema:"minLength=1"`
}

func (s *service) getPlanTool() (plantool.Tool, error) {
	return plantool.NewTool("get_plan",
		"Return the stored plan of a session. Fails with not_found when the session has no plan.",
		func(ctx context.Context, a sessionArgs) (domain.Plan, error) {
			return s.plans.Get(ctx, a.SessionID)
		},
		plantool.WithTags("plan"), plantool.WithVersion(Version))
}
