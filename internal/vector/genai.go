package vector

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenaiEmbedder produces embeddings via the Vertex AI embedding models.
type GenaiEmbedder struct {
	client *genai.Client
	model  string // e.g. "text-embedding-004"
	dim    int
}

// NewGenaiEmbedder constructs a Vertex-backed embedder.
func NewGenaiEmbedder(ctx context.Context, project, location, model string, dim int) (*GenaiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GenaiEmbedder{client: client, model: model, dim: dim}, nil
}

// NewGenaiEmbedderFromClient wraps an existing client.
func NewGenaiEmbedderFromClient(client *genai.Client, model string, dim int) *GenaiEmbedder {
	return &GenaiEmbedder{client: client, model: model, dim: dim}
}

// Dimension implements Embedder.
func (e *GenaiEmbedder) Dimension() int { return e.dim }

// Embed implements Embedder. A response whose vector length differs from the
// configured dimension is a configuration error, not data to index.
func (e *GenaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("embed content: empty response")
	}
	values := res.Embeddings[0].Values
	if len(values) != e.dim {
		return nil, fmt.Errorf("%w: model %s returned %d, configured %d", ErrDimensionMismatch, e.model, len(values), e.dim)
	}
	return values, nil
}
