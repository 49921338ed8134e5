// Package tools registers the plan engine operations as plantool tools.
package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/loancalc"
	"github.com/skosovsky/plantool/logger"
	"github.com/skosovsky/plantool/normalize"
	"github.com/skosovsky/plantool/plan"
	"github.com/skosovsky/plantool/retrieval"
)

// Version is reported by every tool of the catalog.
const Version = "1.0.0"

// Searcher runs a product search.
type Searcher interface {
	Search(ctx context.Context, req retrieval.Request) (retrieval.Result, error)
}

// Deps are the engine components behind the tools. Tools whose component is nil are not
// registered; Normalizer defaults to the built-in alias table.
type Deps struct {
	Normalizer *normalize.Normalizer
	Calculator *loancalc.Calculator
	Search     Searcher
	Plans      *plan.Aggregator
	// SearchTimeout bounds a whole search_products call, overriding the registry default when set.
	SearchTimeout time.Duration
	// LLMModel is reported by plan_health.
	LLMModel string
	Log      *logger.Logger
}

type service struct {
	norm          *normalize.Normalizer
	calc          *loancalc.Calculator
	search        Searcher
	searchTimeout time.Duration
	plans         *plan.Aggregator
	llmModel      string
	log           *logger.Logger
}

var registerTypes sync.Once

// Register builds the tool catalog from deps and adds it to reg. It returns the registered names.
func Register(reg *plantool.Registry, deps Deps) ([]string, error) {
	registerTypes.Do(func() {
		plantool.RegisterType(domain.Category(""), "string", "",
			string(domain.CategoryDeposit), string(domain.CategorySaving), string(domain.CategoryFund))
	})
	s := &service{
		norm:          deps.Normalizer,
		calc:          deps.Calculator,
		search:        deps.Search,
		searchTimeout: deps.SearchTimeout,
		plans:         deps.Plans,
		llmModel:      deps.LLMModel,
		log:           deps.Log,
	}
	if s.norm == nil {
		s.norm = normalize.New(nil)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}

	builders := []func() (plantool.Tool, error){
		s.parseCurrencyTool,
		s.normalizeLocationTool,
		s.parseRatioTool,
		s.validateInputTool,
		s.shortageTool,
		s.topFundsTool,
		s.simulateTool,
		s.healthTool,
	}
	if s.calc != nil {
		builders = append(builders, s.affordabilityTool)
	}
	if s.search != nil {
		builders = append(builders, s.searchProductsTool)
	}
	if s.plans != nil {
		builders = append(builders, s.upsertPlanTool, s.getPlanTool)
	}

	names := make([]string, 0, len(builders))
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, fmt.Errorf("build tool: %w", err)
		}
		reg.Register(t)
		names = append(names, t.Name())
	}
	return names, nil
}

// sessionProfile returns inline when set; otherwise the profile stored with sessionID.
func (s *service) sessionProfile(ctx context.Context, op, sessionID string, inline *domain.UserProfile) (domain.UserProfile, error) {
	if inline != nil {
		return *inline, nil
	}
	if strings.TrimSpace(sessionID) == "" || s.plans == nil {
		return domain.UserProfile{}, domain.InvalidInputError(op, "profile is required when session_id is not given")
	}
	return s.plans.Profile(ctx, sessionID)
}

// record stores patch in the session plan when a session is given.
func (s *service) record(ctx context.Context, sessionID string, patch domain.PlanPatch) error {
	if s.plans == nil || strings.TrimSpace(sessionID) == "" {
		return nil
	}
	_, err := s.plans.Upsert(ctx, sessionID, patch)
	return err
}

// optionalAmount parses v, returning ok=false for an absent value.
func optionalAmount(v any) (domain.MonetaryAmount, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	n, err := normalize.ParseAmount(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
