// Package plan owns session-scoped plan records: it merges stage outputs into the stored plan
// and mediates reads and writes through a Store.
package plan

import (
	"context"
	"errors"
	"strings"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/logger"
)

// Store is the durable plan storage. PatchPlan must apply the patch atomically per session so
// that concurrent patches touching different fields both survive.
type Store interface {
	GetPlan(ctx context.Context, sessionID string) (domain.Plan, bool, error)
	PatchPlan(ctx context.Context, sessionID string, patch domain.PlanPatch) (domain.Plan, error)
}

// Aggregator is the single writer of plans: every stage output reaches the Store through Upsert.
type Aggregator struct {
	store Store
	log   *logger.Logger
}

// NewAggregator returns an Aggregator over store. A nil log discards output.
func NewAggregator(store Store, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Aggregator{store: store, log: log.With("component", "plan")}
}

// Upsert merges patch into the plan of sessionID, creating the plan if needed, and returns the
// merged plan. Only storage failures are reported.
func (a *Aggregator) Upsert(ctx context.Context, sessionID string, patch domain.PlanPatch) (domain.Plan, error) {
	const op = "plan.upsert"
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Plan{}, domain.InvalidInputError(op, "session_id is required")
	}
	products, unknown := patch.CanonicalProducts()
	if len(unknown) > 0 {
		return domain.Plan{}, domain.InvalidInputError(op, "unknown product categories %v", unknown)
	}
	patch.Products = products
	p, err := a.store.PatchPlan(ctx, sessionID, patch)
	if err != nil {
		a.log.Error("plan upsert failed", "session_id", sessionID, "operation", op, "error", err)
		return domain.Plan{}, asStorageError(op, err)
	}
	a.log.Debug("plan upserted", "session_id", sessionID,
		"profile", patch.Profile != nil, "affordability", patch.Affordability != nil, "target", patch.Target != nil,
		"product_categories", len(patch.Products))
	return p, nil
}

// Get returns the stored plan of sessionID or a NotFoundError.
func (a *Aggregator) Get(ctx context.Context, sessionID string) (domain.Plan, error) {
	const op = "plan.get"
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Plan{}, domain.InvalidInputError(op, "session_id is required")
	}
	p, ok, err := a.store.GetPlan(ctx, sessionID)
	if err != nil {
		a.log.Error("plan read failed", "session_id", sessionID, "operation", op, "error", err)
		return domain.Plan{}, asStorageError(op, err)
	}
	if !ok {
		return domain.Plan{}, domain.NotFoundError(op, "no plan for session %q", sessionID)
	}
	return p, nil
}

// Profile returns the stored profile of sessionID, or a NotFoundError when the plan or its profile
// does not exist.
func (a *Aggregator) Profile(ctx context.Context, sessionID string) (domain.UserProfile, error) {
	p, err := a.Get(ctx, sessionID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if p.Profile == nil {
		return domain.UserProfile{}, domain.NotFoundError("plan.profile", "plan of session %q has no profile", sessionID)
	}
	return *p.Profile, nil
}

func asStorageError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.StorageError(op, "plan storage failed", err)
}
