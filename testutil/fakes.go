package testutil

import (
	"context"
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/retrieval"
)

// StaticRates is a loancalc.RateSource backed by a map of loan type to annual rate.
type StaticRates map[string]float64

func (s StaticRates) LowestRate(_ context.Context, loanType string) (float64, bool, error) {
	r, ok := s[loanType]
	return r, ok, nil
}

// HashEmbedder returns a deterministic vector derived from the text. Calls counts Embed calls.
type HashEmbedder struct {
	Dim   int
	Err   error
	Calls atomic.Int32
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.Calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	dim := e.Dim
	if dim <= 0 {
		dim = 4
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40) / float32(1<<24)
	}
	return vec, nil
}

// MemoryIndexes is an in-memory retrieval.Indexes. A category with a non-nil entry in Failures
// fails with that error; a category without products behaves as an empty index.
type MemoryIndexes struct {
	mu       sync.Mutex
	Products map[domain.Category][]domain.ProductRecord
	Failures map[domain.Category]error
}

func NewMemoryIndexes() *MemoryIndexes {
	return &MemoryIndexes{
		Products: make(map[domain.Category][]domain.ProductRecord),
		Failures: make(map[domain.Category]error),
	}
}

// Add stores products under category c.
func (m *MemoryIndexes) Add(c domain.Category, products ...domain.ProductRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		p.Category = c
		m.Products[c] = append(m.Products[c], p)
	}
}

// Fail makes category c fail with err.
func (m *MemoryIndexes) Fail(c domain.Category, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[c] = err
}

func (m *MemoryIndexes) Index(c domain.Category) (retrieval.VectorIndex, error) {
	return memoryIndex{parent: m, category: c}, nil
}

type memoryIndex struct {
	parent   *MemoryIndexes
	category domain.Category
}

// Search returns the first k products in insertion order.
func (i memoryIndex) Search(ctx context.Context, _ []float32, k int) ([]domain.ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.parent.mu.Lock()
	defer i.parent.mu.Unlock()
	if err := i.parent.Failures[i.category]; err != nil {
		return nil, err
	}
	out := slices.Clone(i.parent.Products[i.category])
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
