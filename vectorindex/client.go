// Package vectorindex serves the per-category product indexes from Qdrant over its REST API.
// Every category is a collection named "<prefix>_<category>" guarded by its own circuit breaker.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/logger"
	"github.com/skosovsky/plantool/retrieval"
)

const maxErrorBodyBytes = 1024

var pointIDNamespace = uuid.MustParse("6f1b3c2e-9a41-4f0d-8e57-2c9d3b7a1e64")

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	VectorDim        int
	// HTTPTimeout caps a single HTTP exchange; per-call deadlines come from the caller's context.
	HTTPTimeout time.Duration
	// BreakerFailures is the number of consecutive unavailability errors that opens a breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker rejects calls before probing again.
	BreakerCooldown time.Duration
}

func (c Config) validate() error {
	var problems []string
	if strings.TrimSpace(c.URL) == "" {
		problems = append(problems, "URL is required")
	}
	if strings.TrimSpace(c.CollectionPrefix) == "" {
		problems = append(problems, "collection prefix is required")
	}
	if c.VectorDim < 0 {
		problems = append(problems, "vector dimension must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("vectorindex config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Client holds one Qdrant collection per product category and serves them as retrieval.Indexes.
type Client struct {
	cfg      Config
	baseURL  string
	http     *http.Client
	breakers map[domain.Category]*gobreaker.CircuitBreaker
	log      *logger.Logger
}

// New validates cfg and builds a Client with a circuit breaker per category. It makes no requests.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	c := &Client{
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		breakers: make(map[domain.Category]*gobreaker.CircuitBreaker, len(domain.AllCategories)),
		log:      log.With("component", "vectorindex"),
	}
	for _, cat := range domain.AllCategories {
		name := c.collection(cat)
		c.breakers[cat] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !isUnavailable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn("index breaker state changed", "collection", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return c, nil
}

// Index returns the index of category.
func (c *Client) Index(category domain.Category) (retrieval.VectorIndex, error) {
	br, ok := c.breakers[category]
	if !ok {
		return nil, domain.IndexUnavailableError("index", fmt.Sprintf("no index for category %q", category), nil)
	}
	return &collectionIndex{client: c, category: category, name: c.collection(category), breaker: br}, nil
}

// Ready checks that Qdrant answers its readiness endpoint.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return opErr("ready", "", OperationErrorTransportFailed, "build ready request failed", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError("ready", "", "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: "ready", StatusCode: resp.StatusCode}
	}
	return nil
}

// EnsureCollections creates missing category collections with cosine distance.
func (c *Client) EnsureCollections(ctx context.Context) error {
	if c.cfg.VectorDim <= 0 {
		return opErr("ensure_collection", "", OperationErrorValidation, "vector dimension is required", nil)
	}
	for _, cat := range domain.AllCategories {
		name := c.collection(cat)
		err := c.doJSON(ctx, "get_collection", name, http.MethodGet, "/collections/"+name, nil, nil)
		if err == nil {
			continue
		}
		body := map[string]any{"vectors": map[string]any{"size": c.cfg.VectorDim, "distance": "Cosine"}}
		if err := c.doJSON(ctx, "create_collection", name, http.MethodPut, "/collections/"+name, body, nil); err != nil {
			return err
		}
		c.log.Info("created product collection", "collection", name, "vector_dim", c.cfg.VectorDim)
	}
	return nil
}

// Upsert writes products into their category collection. Point ids are derived from the
// product id, so re-indexing the same product overwrites it.
func (c *Client) Upsert(ctx context.Context, category domain.Category, products []domain.ProductRecord) error {
	const op = "upsert"
	name := c.collection(category)
	if len(products) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return opErr(op, name, OperationErrorValidation, "product id is required", nil)
		}
		if err := c.checkDim(op, name, p.Embedding); err != nil {
			return err
		}
		pl := payloadFromProduct(p)
		pl.Category = category
		points = append(points, map[string]any{
			"id":      pointID(category, p.ID),
			"vector":  p.Embedding,
			"payload": pl,
		})
	}
	return c.doJSON(ctx, op, name, http.MethodPut, "/collections/"+name+"/points?wait=true", map[string]any{"points": points}, nil)
}

func (c *Client) collection(category domain.Category) string {
	return strings.TrimSpace(c.cfg.CollectionPrefix) + "_" + string(category)
}

func (c *Client) checkDim(op, name string, v []float32) error {
	if len(v) == 0 {
		return opErr(op, name, OperationErrorValidation, "vector is empty", nil)
	}
	if c.cfg.VectorDim > 0 && len(v) != c.cfg.VectorDim {
		return opErr(op, name, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", c.cfg.VectorDim, len(v)), nil)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}
}

type collectionIndex struct {
	client   *Client
	category domain.Category
	name     string
	breaker  *gobreaker.CircuitBreaker
}

type searchHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload productPayload  `json:"payload"`
}

// Search returns up to k products nearest to vector, best score first.
func (ci *collectionIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.ProductRecord, error) {
	const op = "search"
	if err := ci.client.checkDim(op, ci.name, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = retrieval.TopK
	}
	out, err := ci.breaker.Execute(func() (any, error) {
		var hits []searchHit
		req := map[string]any{
			"vector":       vector,
			"limit":        k,
			"with_payload": true,
			"with_vector":  false,
		}
		if err := ci.client.doJSON(ctx, op, ci.name, http.MethodPost, "/collections/"+ci.name+"/points/search", req, &hits); err != nil {
			return nil, err
		}
		return hits, nil
	})
	if err != nil {
		return nil, toDomain(op, err)
	}
	hits := out.([]searchHit)

	products := make([]domain.ProductRecord, 0, len(hits))
	for _, h := range hits {
		p := h.Payload.product()
		if p.ID == "" {
			continue
		}
		if p.Category == "" {
			p.Category = ci.category
		}
		p.Score = h.Score
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Score == products[j].Score {
			return products[i].ID < products[j].ID
		}
		return products[i].Score > products[j].Score
	})
	return products, nil
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

func (c *Client) doJSON(ctx context.Context, op, collection, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, collection, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, collection, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, collection, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyHTTPCallError(op, collection, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			Collection: collection,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}
	var env qdrantEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, collection, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := envelopeError(env.Status); msg != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			Collection: collection,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, collection, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

// envelopeError returns the error text of a non-"ok" status, which Qdrant reports either as a
// string or as {"error": "..."}.
func envelopeError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") || s == "" {
			return ""
		}
		return s
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}
	return ""
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBodyBytes {
		return string(b[:maxErrorBodyBytes]) + "..."
	}
	return string(b)
}

func pointID(category domain.Category, productID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(string(category)+":"+productID)).String()
}

var _ retrieval.Indexes = (*Client)(nil)
