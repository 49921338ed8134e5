// Package retrieval implements product search: a deterministic query from the user profile is
// embedded once, each requested category index returns its nearest neighbours, and survivors of
// the hard filters are ranked and truncated per category.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/logger"
)

// TopK is the number of nearest neighbours requested from each category index.
const TopK = 10

// DefaultTimeout bounds every embedding and index call.
const DefaultTimeout = 30 * time.Second

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is one category's nearest-neighbour index.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.ProductRecord, error)
}

// Indexes resolves the index of a category.
type Indexes interface {
	Index(category domain.Category) (VectorIndex, error)
}

// Request is a product search.
type Request struct {
	// SessionID tags the search logs; empty for a stateless search.
	SessionID    string
	Profile      domain.UserProfile
	TargetAmount domain.MonetaryAmount
	Filters      Constraints
	// Categories to search; empty means all categories.
	Categories []domain.Category
}

// Result maps every requested category to its ranked set. Degraded lists the categories whose
// index was unavailable and therefore returned an empty set.
type Result struct {
	Products map[domain.Category]domain.RankedProductSet `json:"products"`
	Degraded []domain.Category                           `json:"degraded"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout overrides DefaultTimeout for collaborator calls.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithOnDegraded registers a hook invoked when a category degrades to an empty set.
func WithOnDegraded(fn func(domain.Category, error)) Option {
	return func(p *Pipeline) { p.onDegraded = fn }
}

// Pipeline embeds the profile query once and fans out to the category indexes concurrently.
// It is safe for concurrent use.
type Pipeline struct {
	embedder   Embedder
	indexes    Indexes
	timeout    time.Duration
	onDegraded func(domain.Category, error)
	log        *logger.Logger
}

// NewPipeline returns a Pipeline over embedder and indexes. A nil log discards output.
func NewPipeline(embedder Embedder, indexes Indexes, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{
		embedder: embedder,
		indexes:  indexes,
		timeout:  DefaultTimeout,
		log:      log.With("component", "retrieval"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search runs the pipeline. An unavailable index degrades its category to an empty set; an
// embedding timeout fails the whole call with a retryable error.
func (p *Pipeline) Search(ctx context.Context, req Request) (Result, error) {
	categories, err := normalizeCategories(req.Categories)
	if err != nil {
		return Result{}, err
	}
	log := p.log
	if req.SessionID != "" {
		log = log.With("session_id", req.SessionID)
	}
	query := BuildQuery(req.Profile, req.TargetAmount)
	vector, err := p.embed(ctx, query)
	if err != nil {
		log.Warn("query embedding failed", "operation", "search_products", "error_kind", domain.KindOf(err), "error", err)
		return Result{}, err
	}

	sets := make([]domain.RankedProductSet, len(categories))
	degraded := make([]bool, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			set, deg, err := p.searchCategory(gctx, log, c, vector, req)
			if err != nil {
				return err
			}
			sets[i], degraded[i] = set, deg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Products: make(map[domain.Category]domain.RankedProductSet, len(categories)),
		Degraded: []domain.Category{},
	}
	for i, c := range categories {
		res.Products[c] = sets[i]
		if degraded[i] {
			res.Degraded = append(res.Degraded, c)
		}
	}
	return res, nil
}

func (p *Pipeline) embed(ctx context.Context, query string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	vector, err := p.embedder.Embed(callCtx, query)
	if err == nil {
		if len(vector) == 0 {
			return nil, fmt.Errorf("embed query: empty vector")
		}
		return vector, nil
	}
	if domain.KindOf(err) != "" {
		return nil, err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, domain.EmbeddingTimeoutError("embed", "embedding provider timed out", err)
	}
	return nil, fmt.Errorf("embed query: %w", err)
}

func (p *Pipeline) searchCategory(ctx context.Context, log *logger.Logger, c domain.Category, vector []float32, req Request) (domain.RankedProductSet, bool, error) {
	idx, err := p.indexes.Index(c)
	if err == nil {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		var candidates []domain.ProductRecord
		candidates, err = idx.Search(callCtx, vector, TopK)
		cancel()
		if err == nil {
			survivors := Filter(candidates, req.Filters, req.Profile)
			log.Debug("category searched", "category", c, "candidates", len(candidates), "survivors", len(survivors))
			return Rank(survivors), false, nil
		}
	}
	if !domain.IsKind(err, domain.KindIndexUnavailable) {
		log.Error("category search failed", "category", c, "operation", "search_products", "error", err)
		return nil, false, err
	}
	log.Warn("product index unavailable, returning empty set", "category", c, "operation", "search_products", "error", err)
	if p.onDegraded != nil {
		p.onDegraded(c, err)
	}
	return domain.RankedProductSet{}, true, nil
}

func normalizeCategories(in []domain.Category) ([]domain.Category, error) {
	if len(in) == 0 {
		return slices.Clone(domain.AllCategories), nil
	}
	out := make([]domain.Category, 0, len(in))
	for _, raw := range in {
		c, ok := domain.ParseCategory(string(raw))
		if !ok {
			return nil, domain.InvalidInputError("search_products", "unknown category %q", raw)
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out, nil
}
