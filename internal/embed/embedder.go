// Package embed turns chunk text into vectors. The engine treats the
// embedder as opaque: any implementation with a fixed dimension plugs in,
// and chunks embedded by different models never mix in one store.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// Embedder produces fixed-dimension vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector width every call returns.
	Dimension() int
	// Model identifies the embedding model; stored alongside vectors so a
	// model switch triggers re-embedding instead of mixing spaces.
	Model() string
}

// NoOpEmbedder returns zero vectors. Useful in tests and when semantic
// search is disabled.
type NoOpEmbedder struct {
	dimension int
}

func NewNoOpEmbedder(dimension int) *NoOpEmbedder {
	return &NoOpEmbedder{dimension: dimension}
}

func (e *NoOpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, e.dimension), nil
}

func (e *NoOpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.dimension)
	}
	return vectors, nil
}

func (e *NoOpEmbedder) Dimension() int { return e.dimension }
func (e *NoOpEmbedder) Model() string  { return "noop" }

// HashEmbedder maps token hashes into a fixed-width vector. No network, no
// model weights, fully deterministic; similarity degrades to token overlap,
// which is enough to make semantic search useful offline.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for _, tok := range tokenize(text) {
		h := sha256.Sum256([]byte(tok))
		slot := binary.LittleEndian.Uint32(h[:4]) % uint32(e.dimension)
		sign := float32(1)
		if h[4]&1 == 1 {
			sign = -1
		}
		vec[slot] += sign
	}
	normalize(vec)
	return vec, nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *HashEmbedder) Dimension() int { return e.dimension }
func (e *HashEmbedder) Model() string  { return "hash-v1" }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
}
