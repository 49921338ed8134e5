package tools

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/normalize"
	"github.com/skosovsky/plantool/retrieval"
)

type searchArgs struct {
	SessionID    string                `json:"session_id,omitempty" description:"Session whose plan supplies the profile and receives the selection"`
	Profile      *domain.UserProfile   `json:"profile,omitempty" description:"User profile; read from the session plan when omitted"`
	TargetAmount any                   `json:"target_amount" description:"Amount the user wants to accumulate"`
	Filters      retrieval.Constraints `json:"filters,omitempty"`
	Categories   []domain.Category     `json:"categories,omitempty" description:"Categories to search; all when omitted"`
}

func (a searchArgs) Validate() error {
	if a.Profile == nil && strings.TrimSpace(a.SessionID) == "" {
		return domain.InvalidInputError("search_products", "either profile or session_id is required")
	}
	return nil
}

func (s *service) searchProductsTool() (plantool.Tool, error) {
	opts := []plantool.ToolOption{plantool.WithTags("products", "plan"), plantool.WithVersion(Version)}
	if s.plans != nil {
		opts = append(opts, plantool.WithPlanWrites())
	}
	t, err := plantool.NewTool("search_products",
		"Find up to three deposit, saving and fund products per category matching the user profile and target amount. "+
			"Categories whose index is unavailable come back empty and are listed in degraded.",
		s.searchProducts, opts...)
	if err != nil || s.searchTimeout <= 0 {
		return t, err
	}
	return plantool.WithTimeoutMiddleware(s.searchTimeout)(t), nil
}

func (s *service) searchProducts(ctx context.Context, a searchArgs) (retrieval.Result, error) {
	const op = "search_products"
	target, err := normalize.ParseAmount(a.TargetAmount)
	if err != nil {
		return retrieval.Result{}, err
	}
	prof, err := s.sessionProfile(ctx, op, a.SessionID, a.Profile)
	if err != nil {
		return retrieval.Result{}, err
	}
	res, err := s.search.Search(ctx, retrieval.Request{
		SessionID:    a.SessionID,
		Profile:      prof,
		TargetAmount: target,
		Filters:      a.Filters,
		Categories:   a.Categories,
	})
	if err != nil {
		return retrieval.Result{}, err
	}

	// degraded categories keep whatever the plan already holds
	selected := lo.OmitByKeys(res.Products, res.Degraded)
	if len(selected) > 0 {
		if err := s.record(ctx, a.SessionID, domain.PlanPatch{Products: selected}); err != nil {
			return retrieval.Result{}, err
		}
	}
	return res, nil
}
