package app

import (
	"context"
	"errors"
	"testing"

	"github.com/tokenscout/tokenscout/internal/vector"
)

// widthEmbedder declares one dimension but emits vectors of another, the
// shape of a remote model that ignores the requested output size.
type widthEmbedder struct {
	declared int
	emitted  int
}

func (e widthEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, e.emitted), nil
}

func (e widthEmbedder) Dimension() int { return e.declared }

func TestVerifyEmbedderAcceptsMatchingWidth(t *testing.T) {
	if err := verifyEmbedder(context.Background(), widthEmbedder{declared: 8, emitted: 8}); err != nil {
		t.Fatalf("matching width rejected: %v", err)
	}
	if err := verifyEmbedder(context.Background(), vector.NewHashEmbedder(16)); err != nil {
		t.Fatalf("hash embedder rejected: %v", err)
	}
}

func TestVerifyEmbedderRejectsWidthMismatch(t *testing.T) {
	err := verifyEmbedder(context.Background(), widthEmbedder{declared: 8, emitted: 12})
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}
