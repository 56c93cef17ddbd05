package vector

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "cheap text model with a large context window")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := e.Embed(ctx, "cheap text model with a large context window")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("unexpected dimensions: %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d", i)
		}
	}
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, err := e.Embed(context.Background(), "claude is a text model from anthropic")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("expected unit vector, got squared norm %v", norm)
	}
}

func TestHashEmbedder_SimilarTextCloserThanUnrelated(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()

	base, _ := e.Embed(ctx, "cheap text model for conversation")
	similar, _ := e.Embed(ctx, "affordable cheap text model for conversation and chat")
	unrelated, _ := e.Embed(ctx, "expensive multimodal video understanding flagship")

	dSimilar := distance(MetricCosine, base, similar)
	dUnrelated := distance(MetricCosine, base, unrelated)
	if dSimilar >= dUnrelated {
		t.Fatalf("expected overlapping text to be closer: similar=%v unrelated=%v", dSimilar, dUnrelated)
	}
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text")
		}
	}
}
