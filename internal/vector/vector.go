// Package vector defines the embedding and nearest-neighbor index contracts
// plus the backends that implement them. The index is a derived cache over
// the pricing store and is always rebuildable in full.
package vector

import (
	"context"
	"errors"
)

// Errors shared across backends.
var (
	// ErrDimensionMismatch indicates a vector whose length does not match
	// the index's fixed dimensionality. Fatal at startup, rejected at runtime.
	ErrDimensionMismatch = errors.New("vector: embedding dimension mismatch")
	// ErrUnavailable indicates the index backend cannot be reached.
	ErrUnavailable = errors.New("vector: index unavailable")
)

// Metric selects the distance function. Fixed per deployment, never mixed.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// Point is one indexed document: id, embedding, source text, and metadata.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Hit is one query result. Lower distance means more similar.
type Hit struct {
	ID       string
	Distance float64
	Text     string
	Metadata map[string]any
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Index is a nearest-neighbor store keyed by document id. Upsert is
// idempotent: indexing the same id twice leaves exactly one entry, the
// second call winning.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, vector []float32, limit int) ([]Hit, error)
	// ReplaceAll atomically swaps the entire index contents for a rebuild;
	// concurrent queries observe either the old or the new state.
	ReplaceAll(ctx context.Context, points []Point) error
}
