package vectorindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/plantool/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func newTestClient(t *testing.T, url string, mut ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{URL: url, CollectionPrefix: "products", VectorDim: 3, BreakerFailures: 2, BreakerCooldown: time.Hour}
	for _, m := range mut {
		m(&cfg)
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(c.http.CloseIdleConnections)
	return c
}

func TestSearch_DecodesAndOrders(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"status":"ok","time":0.001,"result":[
			{"id":"p1","score":0.8,"payload":{"product_id":"s-2","bank_name":"국민은행","interest_rate":3.1,"term_months":12}},
			{"id":"p2","score":0.9,"payload":{"product_id":"s-1","bank_name":"신한은행","interest_rate":3.4,"term_months":24,"min_age":19}},
			{"id":"p3","score":0.9,"payload":{"product_id":"s-0","bank_name":"하나은행","interest_rate":2.0,"term_months":6,"category":"saving"}},
			{"id":"p4","score":0.5,"payload":{"bank_name":"no id"}}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) { cfg.APIKey = "secret" })
	idx, err := c.Index(domain.CategorySaving)
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, "/collections/products_saving/points/search", gotPath)
	assert.EqualValues(t, 10, gotBody["limit"])
	assert.Equal(t, true, gotBody["with_payload"])

	require.Len(t, got, 3)
	assert.Equal(t, "s-0", got[0].ID)
	assert.Equal(t, "s-1", got[1].ID)
	assert.Equal(t, "s-2", got[2].ID)
	assert.Equal(t, domain.CategorySaving, got[1].Category)
	assert.Equal(t, 19, got[1].MinAge)
	assert.InDelta(t, 0.9, got[1].Score, 1e-9)
}

func TestSearch_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	idx, err := newTestClient(t, srv.URL).Index(domain.CategoryDeposit)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 10)
	require.Error(t, err)
	assert.Equal(t, domain.KindIndexUnavailable, domain.KindOf(err))
}

func TestSearch_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	idx, err := newTestClient(t, url).Index(domain.CategoryFund)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 10)
	assert.Equal(t, domain.KindIndexUnavailable, domain.KindOf(err))
}

func TestSearch_BadRequestIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"wrong input"}}`))
	}))
	defer srv.Close()

	idx, err := newTestClient(t, srv.URL).Index(domain.CategoryFund)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 10)
	require.Error(t, err)
	assert.Empty(t, domain.KindOf(err))
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusBadRequest, oe.StatusCode)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx, err := newTestClient(t, "http://127.0.0.1:1").Index(domain.CategoryFund)
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 2}, 10)
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, OperationErrorValidation, oe.Code)
}

func TestSearch_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	idx, err := newTestClient(t, srv.URL).Index(domain.CategoryDeposit)
	require.NoError(t, err)
	for range 4 {
		_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 10)
		assert.Equal(t, domain.KindIndexUnavailable, domain.KindOf(err))
	}
	assert.EqualValues(t, 2, hits.Load(), "breaker must stop calls after two failures")
}

func TestUpsert_DeterministicPointIDs(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/products_deposit/points", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"status":"ok","result":{"status":"completed"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	p := domain.ProductRecord{ID: "d-1", BankName: "국민은행", InterestRate: 3, TermMonths: 12, Embedding: []float32{1, 2, 3}}
	for range 2 {
		require.NoError(t, c.Upsert(context.Background(), domain.CategoryDeposit, []domain.ProductRecord{p}))
	}
	require.Len(t, bodies, 2)
	id := func(b map[string]any) any { return b["points"].([]any)[0].(map[string]any)["id"] }
	assert.Equal(t, id(bodies[0]), id(bodies[1]))
	assert.Equal(t, pointID(domain.CategoryDeposit, "d-1"), id(bodies[0]))
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL is required")
}

func TestEnvelopeError(t *testing.T) {
	assert.Empty(t, envelopeError(json.RawMessage(`"ok"`)))
	assert.Equal(t, "boom", envelopeError(json.RawMessage(`{"error":"boom"}`)))
	assert.Equal(t, "bad", envelopeError(json.RawMessage(`"bad"`)))
	assert.Empty(t, envelopeError(nil))
}
