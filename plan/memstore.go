package plan

import (
	"context"
	"sync"
	"time"

	"github.com/skosovsky/plantool/domain"
)

// MemStore is an in-process Store for tests and single-node development.
type MemStore struct {
	mu    sync.Mutex
	plans map[string]domain.Plan
	now   func() time.Time
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{plans: make(map[string]domain.Plan), now: time.Now}
}

func (s *MemStore) GetPlan(ctx context.Context, sessionID string) (domain.Plan, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Plan{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[sessionID]
	if !ok {
		return domain.Plan{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *MemStore) PatchPlan(ctx context.Context, sessionID string, patch domain.PlanPatch) (domain.Plan, error) {
	if err := ctx.Err(); err != nil {
		return domain.Plan{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	p, ok := s.plans[sessionID]
	if !ok {
		p = domain.Plan{SessionID: sessionID, CreatedAt: now}
	}
	patch.Apply(&p)
	p.UpdatedAt = now
	s.plans[sessionID] = p
	return p.Clone(), nil
}

var _ Store = (*MemStore)(nil)
