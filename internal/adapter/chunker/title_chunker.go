package chunker

import (
	"maps"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const (
	DefaultMaxCharacters = 500
	sectionSeparator     = "\n\n"
)

// TitleChunker groups elements into sections that start at each Title.
// Tables always form their own chunk. Sections longer than maxChars are split,
// and sections shorter than combineUnder are merged with the next one while the
// result stays within maxChars.
type TitleChunker struct {
	maxChars     int
	combineUnder int
}

var _ port.Chunker = (*TitleChunker)(nil)

func NewTitleChunker(maxChars, combineUnder int) *TitleChunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxCharacters
	}
	if combineUnder < 0 {
		combineUnder = 0
	}
	return &TitleChunker{maxChars: maxChars, combineUnder: combineUnder}
}

type section struct {
	parts    []string
	size     int
	source   string
	metadata map[string]any
	table    bool
}

func (s *section) empty() bool {
	return len(s.parts) == 0
}

func (s *section) sizeWith(text string) int {
	if s.empty() {
		return len(text)
	}
	return s.size + len(sectionSeparator) + len(text)
}

func (s *section) add(el domain.Element, text string) {
	if s.empty() {
		s.source = el.SourceFile
		s.metadata = el.Metadata
	}
	s.size = s.sizeWith(text)
	s.parts = append(s.parts, text)
}

func (s *section) text() string {
	return strings.Join(s.parts, sectionSeparator)
}

func (c *TitleChunker) Chunk(elements []domain.Element) ([]domain.Chunk, error) {
	var sections []*section
	current := &section{}

	flush := func() {
		if !current.empty() {
			sections = append(sections, current)
		}
		current = &section{}
	}

	for _, el := range elements {
		switch el.Type {
		case domain.ElementHeader, domain.ElementFooter, domain.ElementPageBreak:
			continue
		}
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		if !current.empty() && current.source != el.SourceFile {
			flush()
		}

		switch {
		case el.Type == domain.ElementTable:
			flush()
			for _, piece := range splitText(text, c.maxChars) {
				t := &section{table: true}
				t.add(el, piece)
				sections = append(sections, t)
			}
		case el.Type == domain.ElementTitle:
			flush()
			c.addText(&current, &sections, el, text)
		default:
			if current.sizeWith(text) > c.maxChars {
				flush()
			}
			c.addText(&current, &sections, el, text)
		}
	}
	flush()

	sections = c.combine(sections)
	return toChunks(sections), nil
}

// addText appends text to the current section, splitting elements that do not
// fit in a single section on their own.
func (c *TitleChunker) addText(current **section, sections *[]*section, el domain.Element, text string) {
	if len(text) <= c.maxChars {
		(*current).add(el, text)
		return
	}
	pieces := splitText(text, c.maxChars)
	for _, piece := range pieces[:len(pieces)-1] {
		s := &section{}
		s.add(el, piece)
		*sections = append(*sections, s)
	}
	(*current).add(el, pieces[len(pieces)-1])
}

func (c *TitleChunker) combine(sections []*section) []*section {
	if c.combineUnder == 0 || len(sections) < 2 {
		return sections
	}
	out := []*section{sections[0]}
	for _, next := range sections[1:] {
		last := out[len(out)-1]
		if !last.table && !next.table &&
			last.source == next.source &&
			last.size < c.combineUnder &&
			last.sizeWith(next.text()) <= c.maxChars {
			last.size = last.sizeWith(next.text())
			last.parts = append(last.parts, next.parts...)
			continue
		}
		out = append(out, next)
	}
	return out
}

func toChunks(sections []*section) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(sections))
	ordinals := make(map[string]int)
	for _, s := range sections {
		md := maps.Clone(s.metadata)
		if md == nil {
			md = make(map[string]any)
		}
		delete(md, domain.MetaLanguages)
		md[domain.MetaSource] = s.source

		n := ordinals[s.source]
		ordinals[s.source] = n + 1
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(s.source, n),
			Text:       s.text(),
			SourceFile: s.source,
			Metadata:   md,
		})
	}
	return chunks
}

// splitText breaks text into pieces of at most max bytes, preferring
// whitespace boundaries.
func splitText(text string, max int) []string {
	var pieces []string
	for len(text) > max {
		cut := strings.LastIndexAny(text[:max+1], " \t\n")
		if cut <= 0 {
			cut = runeBoundary(text, max)
		}
		if piece := strings.TrimSpace(text[:cut]); piece != "" {
			pieces = append(pieces, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return n
}
