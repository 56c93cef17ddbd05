package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an exact nearest-neighbor index held in process memory.
// Suitable for tests and single-binary deployments; Qdrant is the durable
// backend.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
	dim    int
	metric Metric
}

// NewMemoryIndex constructs a MemoryIndex with a fixed dimensionality.
func NewMemoryIndex(dim int, metric Metric) *MemoryIndex {
	return &MemoryIndex{
		points: make(map[string]Point),
		dim:    dim,
		metric: metric,
	}
}

// Upsert inserts or replaces points by id.
func (m *MemoryIndex) Upsert(_ context.Context, points []Point) error {
	for _, p := range points {
		if len(p.Vector) != m.dim {
			return fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(p.Vector), m.dim)
		}
	}
	m.mu.Lock()
	for _, p := range points {
		m.points[p.ID] = p
	}
	m.mu.Unlock()
	return nil
}

// Delete removes points by id. Unknown ids are ignored.
func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.points, id)
	}
	m.mu.Unlock()
	return nil
}

// ReplaceAll rebuilds the index double-buffered: the replacement map is built
// outside the lock and swapped in atomically, so concurrent queries never see
// a half-built index.
func (m *MemoryIndex) ReplaceAll(_ context.Context, points []Point) error {
	next := make(map[string]Point, len(points))
	for _, p := range points {
		if len(p.Vector) != m.dim {
			return fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(p.Vector), m.dim)
		}
		next[p.ID] = p
	}
	m.mu.Lock()
	m.points = next
	m.mu.Unlock()
	return nil
}

// Query returns up to limit hits ordered by ascending distance, ties broken
// by id. An empty index yields an empty slice.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, limit int) ([]Hit, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, index holds %d", ErrDimensionMismatch, len(vector), m.dim)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("vector: non-positive query limit %d", limit)
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.points))
	for _, p := range m.points {
		hits = append(hits, Hit{
			ID:       p.ID,
			Distance: distance(m.metric, vector, p.Vector),
			Text:     p.Text,
			Metadata: p.Metadata,
		})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len reports the number of indexed points.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// distance computes the configured metric. Cosine distance is 1 - cosine
// similarity, which is non-negative and zero for identical directions.
func distance(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		var dot, normA, normB float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			normA += float64(a[i]) * float64(a[i])
			normB += float64(b[i]) * float64(b[i])
		}
		if normA == 0 || normB == 0 {
			return 1
		}
		d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
		if d < 0 {
			// Float rounding can push identical vectors slightly negative.
			return 0
		}
		return d
	}
}
