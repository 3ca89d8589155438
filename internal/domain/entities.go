package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"time"
)

// ElementType classifies a partitioned element.
type ElementType string

const (
	ElementTitle         ElementType = "Title"
	ElementNarrativeText ElementType = "NarrativeText"
	ElementListItem      ElementType = "ListItem"
	ElementTable         ElementType = "Table"
	ElementImage         ElementType = "Image"
	ElementHeader        ElementType = "Header"
	ElementFooter        ElementType = "Footer"
	ElementPageBreak     ElementType = "PageBreak"
	ElementUncategorized ElementType = "UncategorizedText"
)

// Element is the atomic unit produced by partitioning a file.
type Element struct {
	Text       string         `json:"text"`
	Type       ElementType    `json:"type"`
	SourceFile string         `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Chunk groups consecutive elements under a title boundary.
type Chunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	SourceFile string         `json:"source_file"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Document converts the chunk into the unit handed to the index builder.
func (c Chunk) Document() Document {
	return Document{
		ID:       c.ID,
		Text:     c.Text,
		Metadata: maps.Clone(c.Metadata),
	}
}

// Document pairs chunk text with its metadata for indexing.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source returns the source file recorded in the metadata.
func (d Document) Source() string {
	if s, ok := d.Metadata[MetaSource].(string); ok {
		return s
	}
	return ""
}

type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// StoreInfo identifies a built retriever store.
type StoreInfo struct {
	Key           string    `json:"key"`
	BuildID       string    `json:"build_id"`
	DocumentCount int       `json:"document_count"`
	Sources       []string  `json:"sources"`
	Model         string    `json:"model"`
	BuiltAt       time.Time `json:"built_at"`
}

// Metadata keys shared by partitioners and the chunker.
const (
	MetaFilename   = "filename"
	MetaSource     = "source"
	MetaLanguages  = "languages"
	MetaPageNumber = "page_number"
	MetaFiletype   = "filetype"
)

// ChunkID derives a stable chunk identifier from its source and position.
func ChunkID(sourceFile string, ordinal int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", sourceFile, ordinal)))
	return hex.EncodeToString(hash[:8])
}
