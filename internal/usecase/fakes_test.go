package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"docrag/internal/domain"
)

// vocabEmbedder counts vocabulary words, giving exact, collision-free
// similarity for small test corpora.
type vocabEmbedder struct {
	vocab []string
	calls atomic.Int32
	fail  atomic.Bool
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	return &vocabEmbedder{vocab: words}
}

func (e *vocabEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.fail.Load() {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(e.vocab))
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !('a' <= r && r <= 'z')
		}) {
			for j, word := range e.vocab {
				if w == word {
					v[j]++
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *vocabEmbedder) Dimension() int    { return len(e.vocab) }
func (e *vocabEmbedder) ModelName() string { return "vocab" }

// mapSource serves fixed chunk texts per path.
type mapSource struct {
	mu    sync.Mutex
	files map[string][]string
	errs  map[string]error
}

func newMapSource() *mapSource {
	return &mapSource{files: make(map[string][]string), errs: make(map[string]error)}
}

func (s *mapSource) set(path string, texts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = texts
	delete(s.errs, path)
}

func (s *mapSource) setErr(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[path] = err
}

func (s *mapSource) GetChunks(ctx context.Context, path string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	texts, ok := s.files[path]
	if !ok {
		return nil, &domain.PartitionError{Path: path, Err: errors.New("no such file")}
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(path, i),
			Text:       t,
			SourceFile: path,
			Metadata:   map[string]any{domain.MetaSource: path},
		}
	}
	return chunks, nil
}

type recordingGenerator struct {
	calls   atomic.Int32
	prompt  string
	predict int
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string, nPredict int) (json.RawMessage, error) {
	g.calls.Add(1)
	g.prompt = prompt
	g.predict = nPredict
	return json.RawMessage(`{"content":"answer"}`), nil
}
