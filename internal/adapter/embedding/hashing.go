package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/port"
)

// HashingEmbedder maps text to a fixed-size bag-of-words vector by feature
// hashing analyzer terms. Vectors are L2-normalised; text without terms maps
// to the zero vector.
type HashingEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

var _ port.Embedder = (*HashingEmbedder)(nil)

func NewHashingEmbedder(dimension int, stemming bool) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashingEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(stemming),
	}
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	for term, count := range e.tokenizer.TermFrequencies(text) {
		h := fnv.New64a()
		h.Write([]byte(term))
		sum := h.Sum64()
		// The top bit picks the sign so colliding terms tend to cancel.
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(e.dimension)] += sign * float32(1+math.Log(float64(count)))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return "hashing"
}
