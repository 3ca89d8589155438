package partition

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"docrag/internal/domain"
)

// ElementRecord is the on-disk form of an element, compatible with the
// unstructured library's element dictionaries.
type ElementRecord struct {
	Type      string         `json:"type"`
	ElementID string         `json:"element_id,omitempty"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ElementsReader reads elements previously written as a JSON array of
// ElementRecord.
type ElementsReader struct{}

func NewElementsReader() *ElementsReader {
	return &ElementsReader{}
}

func (r *ElementsReader) Partition(ctx context.Context, path string) ([]domain.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []ElementRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode elements: %w", err)
	}

	elements := make([]domain.Element, 0, len(records))
	for _, rec := range records {
		typ := domain.ElementType(rec.Type)
		if typ == "" {
			typ = domain.ElementUncategorized
		}
		elements = append(elements, domain.Element{
			Text:     rec.Text,
			Type:     typ,
			Metadata: rec.Metadata,
		})
	}
	return annotate(path, KindElements, elements), nil
}

// Records converts elements into their on-disk form. Element IDs are derived
// from the source file and position.
func Records(elements []domain.Element) []ElementRecord {
	records := make([]ElementRecord, len(elements))
	for i, el := range elements {
		records[i] = ElementRecord{
			Type:      string(el.Type),
			ElementID: domain.ChunkID(el.SourceFile+":element", i),
			Text:      el.Text,
			Metadata:  el.Metadata,
		}
	}
	return records
}
