package port

import (
	"context"

	"docrag/internal/domain"
)

// Partitioner turns a file into an ordered sequence of elements.
type Partitioner interface {
	Partition(ctx context.Context, path string) ([]domain.Element, error)
}
