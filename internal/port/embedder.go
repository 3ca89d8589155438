package port

import (
	"context"

	"docrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// IndexBuilder constructs a similarity index over documents.
type IndexBuilder interface {
	// Build indexes docs; vectors[i] is the embedding of docs[i].
	Build(ctx context.Context, docs []domain.Document, vectors [][]float32) (Index, error)
}

// Index is a built, read-only similarity index.
type Index interface {
	// Search returns up to k documents, most similar first.
	Search(query []float32, k int) ([]domain.ScoredDocument, error)

	// Len returns the number of indexed documents.
	Len() int
}
