// Package partition turns source files into ordered element sequences.
//
// Parsers are chosen by file extension alone: .html/.htm, .pptx, .pdf, and
// .json element dumps written by the partition command. Any other extension
// is rejected with domain.ErrUnsupportedType.
package partition

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Kind names a parser variant.
type Kind string

const (
	KindUnsupported Kind = ""
	KindHTML        Kind = "html"
	KindSlides      Kind = "pptx"
	KindPDF         Kind = "pdf"
	KindElements    Kind = "json"
)

// KindOf returns the parser kind for path based on its extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return KindHTML
	case ".pptx":
		return KindSlides
	case ".pdf":
		return KindPDF
	case ".json":
		return KindElements
	default:
		return KindUnsupported
	}
}

// Supported reports whether some parser handles path.
func Supported(path string) bool {
	return KindOf(path) != KindUnsupported
}

// Router dispatches Partition calls to the parser matching the file extension.
type Router struct {
	parsers map[Kind]port.Partitioner
}

var _ port.Partitioner = (*Router)(nil)

// NewRouter creates a router over the default parsers. pdf may be nil to use
// pdftotext from PATH.
func NewRouter(pdf *PDFParser) *Router {
	if pdf == nil {
		pdf = NewPDFParser("")
	}
	return &Router{
		parsers: map[Kind]port.Partitioner{
			KindHTML:     NewHTMLParser(),
			KindSlides:   NewSlideParser(),
			KindPDF:      pdf,
			KindElements: NewElementsReader(),
		},
	}
}

// ForPath returns the parser for path.
func (r *Router) ForPath(path string) (port.Partitioner, error) {
	p, ok := r.parsers[KindOf(path)]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	return p, nil
}

// Partition parses path with the matching parser. Every failure is reported
// as a *domain.PartitionError.
func (r *Router) Partition(ctx context.Context, path string) ([]domain.Element, error) {
	p, err := r.ForPath(path)
	if err != nil {
		return nil, &domain.PartitionError{Path: path, Err: err}
	}
	elements, err := p.Partition(ctx, path)
	if err != nil {
		var perr *domain.PartitionError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &domain.PartitionError{Path: path, Err: err}
	}
	return elements, nil
}

// annotate fills in source and file metadata shared by every parser.
func annotate(path string, kind Kind, elements []domain.Element) []domain.Element {
	name := filepath.Base(path)
	for i := range elements {
		elements[i].SourceFile = path
		if elements[i].Metadata == nil {
			elements[i].Metadata = make(map[string]any)
		}
		md := elements[i].Metadata
		if _, ok := md[domain.MetaFilename]; !ok {
			md[domain.MetaFilename] = name
		}
		if _, ok := md[domain.MetaFiletype]; !ok {
			md[domain.MetaFiletype] = string(kind)
		}
		if _, ok := md[domain.MetaLanguages]; !ok {
			md[domain.MetaLanguages] = []string{"eng"}
		}
	}
	return elements
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
