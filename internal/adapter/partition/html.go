package partition

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"docrag/internal/domain"
)

// HTMLParser extracts headings, paragraphs, list items and tables from HTML.
type HTMLParser struct{}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

func (p *HTMLParser) Partition(ctx context.Context, path string) ([]domain.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var elements []domain.Element
	walkHTML(root, &elements)
	return annotate(path, KindHTML, elements), nil
}

var skipAtoms = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

var blockAtoms = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Li: true, atom.Table: true, atom.Pre: true, atom.Blockquote: true,
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Ul: true, atom.Ol: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Nav: true, atom.Aside: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Figure: true, atom.Figcaption: true,
}

func walkHTML(n *html.Node, out *[]domain.Element) {
	if n.Type == html.ElementNode {
		if skipAtoms[n.DataAtom] {
			return
		}
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			emit(out, domain.ElementTitle, textContent(n), map[string]any{
				"category_depth": int(n.Data[1] - '1'),
			})
			return
		case atom.P, atom.Pre, atom.Blockquote, atom.Dt, atom.Dd, atom.Figcaption:
			emit(out, domain.ElementNarrativeText, textContent(n), nil)
			return
		case atom.Li:
			emit(out, domain.ElementListItem, textContent(n), nil)
			return
		case atom.Table:
			if text := tableText(n); text != "" {
				*out = append(*out, domain.Element{Text: text, Type: domain.ElementTable})
			}
			return
		case atom.Header:
			emit(out, domain.ElementHeader, textContent(n), nil)
			return
		case atom.Footer:
			emit(out, domain.ElementFooter, textContent(n), nil)
			return
		case atom.Div, atom.Section, atom.Article, atom.Main:
			if !hasBlockDescendant(n) {
				emit(out, domain.ElementNarrativeText, textContent(n), nil)
				return
			}
		}
	}
	if n.Type == html.TextNode {
		emit(out, domain.ElementUncategorized, n.Data, nil)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, out)
	}
}

func emit(out *[]domain.Element, typ domain.ElementType, text string, md map[string]any) {
	text = normalizeSpace(text)
	if text == "" {
		return
	}
	*out = append(*out, domain.Element{Text: text, Type: typ, Metadata: md})
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockAtoms[c.DataAtom] || hasBlockDescendant(c)) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipAtoms[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// tableText renders a table one row per line with cells separated by spaces.
func tableText(n *html.Node) string {
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					if cell := normalizeSpace(textContent(c)); cell != "" {
						cells = append(cells, cell)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if len(rows) == 0 {
		return normalizeSpace(textContent(n))
	}
	return strings.Join(rows, "\n")
}
