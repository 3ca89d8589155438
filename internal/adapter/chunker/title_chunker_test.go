package chunker

import (
	"strings"
	"testing"

	"docrag/internal/domain"
)

func el(typ domain.ElementType, text string) domain.Element {
	return domain.Element{
		Text:       text,
		Type:       typ,
		SourceFile: "/docs/a.html",
		Metadata: map[string]any{
			domain.MetaFilename:  "a.html",
			domain.MetaLanguages: []string{"eng"},
		},
	}
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func assertTexts(t *testing.T, got []domain.Chunk, want ...string) {
	t.Helper()
	g := texts(got)
	if len(g) != len(want) {
		t.Fatalf("expected %d chunks %q, got %d %q", len(want), want, len(g), g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], g[i])
		}
	}
}

func TestTitleChunker_TitleBoundaries(t *testing.T) {
	c := NewTitleChunker(500, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementTitle, "Intro"),
		el(domain.ElementNarrativeText, "Intro text."),
		el(domain.ElementListItem, "a point"),
		el(domain.ElementTitle, "Cats"),
		el(domain.ElementNarrativeText, "Body text about cats."),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "Intro\n\nIntro text.\n\na point", "Cats\n\nBody text about cats.")
}

func TestTitleChunker_TablesIsolated(t *testing.T) {
	c := NewTitleChunker(500, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementTitle, "Data"),
		el(domain.ElementTable, "k v\na 1"),
		el(domain.ElementNarrativeText, "After the table."),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "Data", "k v\na 1", "After the table.")
}

func TestTitleChunker_DropsFurnitureAndEmpty(t *testing.T) {
	c := NewTitleChunker(500, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementHeader, "Company Confidential"),
		el(domain.ElementNarrativeText, "   "),
		el(domain.ElementNarrativeText, "Only this."),
		el(domain.ElementPageBreak, ""),
		el(domain.ElementFooter, "Page 1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "Only this.")
}

func TestTitleChunker_EmptyInput(t *testing.T) {
	chunks, err := NewTitleChunker(0, 0).Chunk(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestTitleChunker_MaxCharacters(t *testing.T) {
	c := NewTitleChunker(20, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementNarrativeText, "fifteen chars a"),
		el(domain.ElementNarrativeText, "fifteen chars b"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "fifteen chars a", "fifteen chars b")
}

func TestTitleChunker_SplitsOversizedElement(t *testing.T) {
	c := NewTitleChunker(10, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementNarrativeText, "alpha beta gamma delta"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "alpha beta", "gamma", "delta")
	for _, ch := range chunks {
		if len(ch.Text) > 10 {
			t.Errorf("chunk %q exceeds max characters", ch.Text)
		}
	}
}

func TestTitleChunker_SplitsUnbrokenText(t *testing.T) {
	c := NewTitleChunker(4, 0)
	chunks, err := c.Chunk([]domain.Element{el(domain.ElementNarrativeText, "abcdefghij")})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(texts(chunks), ""); got != "abcdefghij" {
		t.Errorf("expected all text preserved, got %q", got)
	}
}

func TestTitleChunker_CombineUnder(t *testing.T) {
	c := NewTitleChunker(500, 10)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementTitle, "A"),
		el(domain.ElementTitle, "B"),
		el(domain.ElementTitle, "A much longer title"),
		el(domain.ElementNarrativeText, "with body"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "A\n\nB\n\nA much longer title\n\nwith body")

	c = NewTitleChunker(500, 0)
	chunks, err = c.Chunk([]domain.Element{
		el(domain.ElementTitle, "A"),
		el(domain.ElementTitle, "B"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTexts(t, chunks, "A", "B")
}

func TestTitleChunker_Metadata(t *testing.T) {
	c := NewTitleChunker(500, 0)
	chunks, err := c.Chunk([]domain.Element{
		el(domain.ElementTitle, "One"),
		el(domain.ElementTitle, "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID == chunks[1].ID {
		t.Error("chunk IDs should be unique")
	}
	for _, ch := range chunks {
		if ch.SourceFile != "/docs/a.html" {
			t.Errorf("unexpected source file %q", ch.SourceFile)
		}
		if ch.Metadata[domain.MetaSource] != "/docs/a.html" {
			t.Errorf("expected source metadata, got %v", ch.Metadata[domain.MetaSource])
		}
		if ch.Metadata[domain.MetaFilename] != "a.html" {
			t.Errorf("expected filename metadata, got %v", ch.Metadata[domain.MetaFilename])
		}
		if _, ok := ch.Metadata[domain.MetaLanguages]; ok {
			t.Error("languages metadata should be removed")
		}
	}
}

func TestTitleChunker_DoesNotMutateInput(t *testing.T) {
	in := []domain.Element{el(domain.ElementTitle, "One")}
	if _, err := NewTitleChunker(500, 0).Chunk(in); err != nil {
		t.Fatal(err)
	}
	if _, ok := in[0].Metadata[domain.MetaLanguages]; !ok {
		t.Error("input element metadata was modified")
	}
}
