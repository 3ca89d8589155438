package partition

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode"

	"docrag/internal/domain"
)

// ErrPDFToolNotFound is returned when the pdftotext binary is unavailable.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFParser extracts text from PDFs with pdftotext. Pages are split on form
// feeds and blocks on blank lines; short single-line blocks are treated as
// titles.
type PDFParser struct {
	tool   string
	runner CommandRunner
}

func NewPDFParser(tool string) *PDFParser {
	return NewPDFParserWithRunner(tool, execRunner{})
}

func NewPDFParserWithRunner(tool string, runner CommandRunner) *PDFParser {
	if tool == "" {
		tool = "pdftotext"
	}
	return &PDFParser{tool: tool, runner: runner}
}

func (p *PDFParser) Partition(ctx context.Context, path string) ([]domain.Element, error) {
	out, err := p.runner.Run(ctx, p.tool, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrPDFToolNotFound
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	return annotate(path, KindPDF, parsePDFText(string(out))), nil
}

func parsePDFText(text string) []domain.Element {
	var elements []domain.Element
	for i, page := range strings.Split(text, "\f") {
		pageNum := i + 1
		for _, block := range splitBlocks(page) {
			for _, el := range classifyBlock(block) {
				el.Metadata = map[string]any{domain.MetaPageNumber: pageNum}
				elements = append(elements, el)
			}
		}
	}
	return elements
}

func splitBlocks(page string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

var bulletPrefixes = []string{"•", "◦", "▪", "- ", "* ", "– "}

func bulletText(line string) (string, bool) {
	for _, b := range bulletPrefixes {
		if strings.HasPrefix(line, b) {
			return strings.TrimSpace(strings.TrimPrefix(line, b)), true
		}
	}
	return line, false
}

func classifyBlock(lines []string) []domain.Element {
	allBullets := true
	for _, l := range lines {
		if _, ok := bulletText(l); !ok {
			allBullets = false
			break
		}
	}
	if allBullets {
		items := make([]domain.Element, 0, len(lines))
		for _, l := range lines {
			t, _ := bulletText(l)
			if t = normalizeSpace(t); t != "" {
				items = append(items, domain.Element{Text: t, Type: domain.ElementListItem})
			}
		}
		return items
	}

	text := normalizeSpace(strings.Join(lines, " "))
	if text == "" {
		return nil
	}
	typ := domain.ElementNarrativeText
	if len(lines) == 1 && looksLikeTitle(text) {
		typ = domain.ElementTitle
	}
	return []domain.Element{{Text: text, Type: typ}}
}

func looksLikeTitle(s string) bool {
	if len(s) > 80 || len(strings.Fields(s)) > 12 {
		return false
	}
	last := []rune(s)[len([]rune(s))-1]
	if strings.ContainsRune(".!?,;:", last) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
