// Package index provides the in-process similarity index.
package index

import (
	"context"
	"fmt"
	"math"
	"slices"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// BruteForce scores a query against every stored vector by cosine
// similarity. Ties keep insertion order. An index is immutable once built.
type BruteForce struct {
	docs    []domain.Document
	vectors [][]float32
	norms   []float64
	dim     int
}

var _ port.Index = (*BruteForce)(nil)

// Builder creates BruteForce indexes.
type Builder struct{}

var _ port.IndexBuilder = Builder{}

func NewBuilder() Builder {
	return Builder{}
}

func (Builder) Build(ctx context.Context, docs []domain.Document, vectors [][]float32) (port.Index, error) {
	return New(ctx, docs, vectors)
}

// New indexes docs; vectors[i] must be the embedding of docs[i] and all
// vectors must share one dimension.
func New(ctx context.Context, docs []domain.Document, vectors [][]float32) (*BruteForce, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("index: %d documents but %d vectors", len(docs), len(vectors))
	}
	idx := &BruteForce{
		docs:    slices.Clone(docs),
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("index: vector dimension mismatch: expected %d, got %d", idx.dim, len(v))
		}
		idx.vectors[i] = slices.Clone(v)
		idx.norms[i] = magnitude(v)
	}
	return idx, nil
}

func (b *BruteForce) Len() int {
	return len(b.docs)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (b *BruteForce) Dimension() int {
	return b.dim
}

// Search returns the min(k, Len()) most similar documents, best first.
func (b *BruteForce) Search(query []float32, k int) ([]domain.ScoredDocument, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(b.docs) == 0 {
		return nil, nil
	}
	if len(query) != b.dim {
		return nil, fmt.Errorf("index: query dimension mismatch: expected %d, got %d", b.dim, len(query))
	}

	type scored struct {
		pos   int
		score float64
	}
	qn := magnitude(query)
	scores := make([]scored, len(b.vectors))
	for i, v := range b.vectors {
		scores[i] = scored{pos: i, score: cosine(query, qn, v, b.norms[i])}
	}

	slices.SortStableFunc(scores, func(x, y scored) int {
		switch {
		case x.score > y.score:
			return -1
		case x.score < y.score:
			return 1
		}
		return 0
	})

	k = min(k, len(scores))
	results := make([]domain.ScoredDocument, k)
	for i := range k {
		results[i] = domain.ScoredDocument{
			Document: b.docs[scores[i].pos],
			Score:    scores[i].score,
		}
	}
	return results, nil
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, na float64, b []float32, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
