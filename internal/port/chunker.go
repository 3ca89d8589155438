package port

import (
	"context"

	"docrag/internal/domain"
)

// Chunker groups partitioned elements of one file into chunks.
type Chunker interface {
	Chunk(elements []domain.Element) ([]domain.Chunk, error)
}

// ChunkSource returns the chunks of a single file.
type ChunkSource interface {
	GetChunks(ctx context.Context, path string) ([]domain.Chunk, error)
}
