package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic local embedding function: tokens and token
// bigrams are feature-hashed into a fixed-dimension unit vector. It needs no
// credentials or network, which makes it the default backend and the one the
// tests run against. Vertex embeddings (GenaiEmbedder) are the production
// alternative.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a HashEmbedder with the given dimensionality.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed implements Embedder. The same text always yields the same vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := tokenize(text)

	var prev string
	for _, token := range tokens {
		e.accumulate(vec, token)
		if prev != "" {
			e.accumulate(vec, prev+" "+token)
		}
		prev = token
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// accumulate hashes one feature into its bucket with a hash-derived sign.
func (e *HashEmbedder) accumulate(vec []float32, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
