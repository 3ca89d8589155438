package port

import "docrag/internal/domain"

// ChunkArchive persists chunk sequences keyed by file content digest.
type ChunkArchive interface {
	// Get returns the archived chunks for digest; ok is false on a miss.
	Get(digest string) (chunks []domain.Chunk, ok bool, err error)

	Put(digest string, chunks []domain.Chunk) error

	Close() error
}
