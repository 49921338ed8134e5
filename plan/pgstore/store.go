// Package pgstore is the PostgreSQL plan.Store. Each plan is a row keyed by session_id whose
// profile, affordability, target and selected_products columns are jsonb.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/plan"
)

const (
	DefaultMaxConns       = 10
	DefaultAcquireTimeout = 5 * time.Second
)

// Config describes the pool. Zero values fall back to DefaultMaxConns and DefaultAcquireTimeout.
type Config struct {
	URL            string
	MaxConns       int32
	AcquireTimeout time.Duration
}

// Store is the pgxpool-backed plan.Store.
type Store struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// Open creates the pool described by cfg and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pcfg.MaxConns = DefaultMaxConns
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool, cfg.AcquireTimeout), nil
}

// New wraps an existing pool. acquireTimeout bounds how long a call waits for a free connection.
func New(pool *pgxpool.Pool, acquireTimeout time.Duration) *Store {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Store{pool: pool, acquireTimeout: acquireTimeout}
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.acquire(ctx, "plan.ping")
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	const sql = `
CREATE TABLE IF NOT EXISTS plans (
  session_id TEXT PRIMARY KEY,
  profile JSONB,
  affordability JSONB,
  target JSONB,
  selected_products JSONB,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE plans ADD COLUMN IF NOT EXISTS target JSONB;
CREATE INDEX IF NOT EXISTS idx_plans_updated_at ON plans(updated_at);
`
	conn, err := s.acquire(ctx, "plan.migrate")
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, sql); err != nil {
		return domain.StorageError("plan.migrate", "create plans table", err)
	}
	return nil
}

const selectColumns = `session_id, profile, affordability, target, selected_products, created_at, updated_at`

func (s *Store) GetPlan(ctx context.Context, sessionID string) (domain.Plan, bool, error) {
	const op = "plan.get"
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return domain.Plan{}, false, err
	}
	defer conn.Release()

	p, err := scanPlan(conn.QueryRow(ctx, `SELECT `+selectColumns+` FROM plans WHERE session_id = $1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Plan{}, false, nil
	}
	if err != nil {
		return domain.Plan{}, false, domain.StorageError(op, "select plan", err)
	}
	return p, true, nil
}

// PatchPlan merges in a single statement so that concurrent patches of different fields
// never overwrite each other.
func (s *Store) PatchPlan(ctx context.Context, sessionID string, patch domain.PlanPatch) (domain.Plan, error) {
	const op = "plan.upsert"
	cols, err := encodeColumns(patch)
	if err != nil {
		return domain.Plan{}, domain.StorageError(op, "encode patch", err)
	}
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return domain.Plan{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
INSERT INTO plans (session_id, profile, affordability, target, selected_products)
VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb)
ON CONFLICT (session_id) DO UPDATE SET
  profile = COALESCE(EXCLUDED.profile, plans.profile),
  affordability = COALESCE(EXCLUDED.affordability, plans.affordability),
  target = COALESCE(EXCLUDED.target, plans.target),
  selected_products = CASE
    WHEN EXCLUDED.selected_products IS NULL THEN plans.selected_products
    ELSE COALESCE(plans.selected_products, '{}'::jsonb) || EXCLUDED.selected_products
  END,
  updated_at = now()
RETURNING `+selectColumns, sessionID, cols.profile, cols.affordability, cols.target, cols.products)
	p, err := scanPlan(row)
	if err != nil {
		return domain.Plan{}, domain.StorageError(op, "upsert plan", err)
	}
	return p, nil
}

func (s *Store) acquire(ctx context.Context, op string) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()
	conn, err := s.pool.Acquire(actx)
	if err != nil {
		return nil, domain.StorageError(op, "acquire connection", err)
	}
	return conn, nil
}

type columns struct {
	profile       []byte
	affordability []byte
	target        []byte
	products      []byte
}

// encodeColumns marshals the fields patch carries; absent fields stay nil and are sent as SQL NULL.
func encodeColumns(patch domain.PlanPatch) (columns, error) {
	var c columns
	var err error
	if patch.Profile != nil {
		if c.profile, err = json.Marshal(patch.Profile); err != nil {
			return c, fmt.Errorf("profile: %w", err)
		}
	}
	if patch.Affordability != nil {
		if c.affordability, err = json.Marshal(patch.Affordability); err != nil {
			return c, fmt.Errorf("affordability: %w", err)
		}
	}
	if patch.Target != nil {
		if c.target, err = json.Marshal(patch.Target); err != nil {
			return c, fmt.Errorf("target: %w", err)
		}
	}
	if len(patch.Products) > 0 {
		if c.products, err = json.Marshal(patch.Products); err != nil {
			return c, fmt.Errorf("selected_products: %w", err)
		}
	}
	return c, nil
}

func scanPlan(row pgx.Row) (domain.Plan, error) {
	var (
		p    domain.Plan
		cols columns
	)
	if err := row.Scan(&p.SessionID, &cols.profile, &cols.affordability, &cols.target, &cols.products, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Plan{}, err
	}
	if err := decodeColumns(&p, cols); err != nil {
		return domain.Plan{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func decodeColumns(p *domain.Plan, cols columns) error {
	if len(cols.profile) > 0 {
		var v domain.UserProfile
		if err := json.Unmarshal(cols.profile, &v); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		p.Profile = &v
	}
	if len(cols.affordability) > 0 {
		var v domain.AffordabilityResult
		if err := json.Unmarshal(cols.affordability, &v); err != nil {
			return fmt.Errorf("decode affordability: %w", err)
		}
		p.Affordability = &v
	}
	if len(cols.target) > 0 {
		var v domain.HousingTarget
		if err := json.Unmarshal(cols.target, &v); err != nil {
			return fmt.Errorf("decode target: %w", err)
		}
		p.Target = &v
	}
	if len(cols.products) > 0 {
		if err := json.Unmarshal(cols.products, &p.SelectedProducts); err != nil {
			return fmt.Errorf("decode selected_products: %w", err)
		}
	}
	return nil
}

var _ plan.Store = (*Store)(nil)
