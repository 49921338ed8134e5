// Package embedding provides the query embedder used by product retrieval.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/retrieval"
)

const DefaultModel = "text-embedding-004"

// contentEmbedder is the subset of *genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini embeds text with a Gemini embedding model.
type Gemini struct {
	models    contentEmbedder
	model     string
	dimension int32
}

// NewGemini builds an embedder backed by the Gemini API. dimension 0 keeps the model default.
func NewGemini(ctx context.Context, apiKey, model string, dimension int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model, dimension), nil
}

func newGemini(models contentEmbedder, model string, dimension int) *Gemini {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model, dimension: int32(dimension)}
}

// Embed returns the embedding of text. Deadline and network timeouts become EmbeddingTimeoutError.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if g.dimension > 0 {
		dim := g.dimension
		cfg.OutputDimensionality = &dim
	}
	resp, err := g.models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, domain.EmbeddingTimeoutError("embed", "embedding request timed out", err)
		}
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("embed content: empty embedding in response")
	}
	return resp.Embeddings[0].Values, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ retrieval.Embedder = (*Gemini)(nil)
