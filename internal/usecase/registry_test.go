package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/partition"
	"docrag/internal/domain"
)

func texts(results []domain.ScoredDocument) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Text
	}
	return out
}

func newTestRegistry(src *mapSource, emb *vocabEmbedder) *Registry {
	return NewRegistry(src, emb, index.NewBuilder())
}

func TestRegistry_DocsScenario(t *testing.T) {
	src := newMapSource()
	src.set("/docs/a.html", "Intro text.", "Body text about cats.")
	r := newTestRegistry(src, newVocabEmbedder("intro", "body", "text", "about", "cats"))
	ctx := context.Background()

	info, err := r.Build(ctx, "docs", []string{"/docs/a.html"})
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Key)
	assert.Equal(t, 2, info.DocumentCount)
	assert.Equal(t, []string{"/docs/a.html"}, info.Sources)
	assert.Equal(t, "vocab", info.Model)
	assert.NotEmpty(t, info.BuildID)

	results, err := r.Search(ctx, "docs", "cats", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Body text about cats."}, texts(results))
}

func TestRegistry_EmptyBuildLeavesNoEntry(t *testing.T) {
	r := newTestRegistry(newMapSource(), newVocabEmbedder("x"))

	_, err := r.Build(context.Background(), "docs", nil)
	var empty *domain.EmptyInputError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "docs", empty.Key)

	_, ok := r.Lookup("docs")
	assert.False(t, ok)
	assert.Empty(t, r.Keys())
}

func TestRegistry_NoChunksIsEmptyInput(t *testing.T) {
	src := newMapSource()
	src.set("/docs/blank.html")
	r := newTestRegistry(src, newVocabEmbedder("x"))

	_, err := r.Build(context.Background(), "docs", []string{"/docs/blank.html"})
	var empty *domain.EmptyInputError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, []string{"/docs/blank.html"}, empty.Paths)
	_, ok := r.Lookup("docs")
	assert.False(t, ok)
}

func TestRegistry_UnknownStore(t *testing.T) {
	r := newTestRegistry(newMapSource(), newVocabEmbedder("x"))
	ctx := context.Background()

	for _, k := range []int{-1, 0, 1, 100} {
		_, err := r.Search(ctx, "missing", "anything", k)
		var unknown *domain.UnknownStoreError
		require.ErrorAs(t, err, &unknown, "topK=%d", k)
		assert.Equal(t, "missing", unknown.Key)
	}

	_, err := r.SearchBatch(ctx, "missing", []string{"a"}, 1)
	assert.True(t, domain.IsUnknownStore(err))
}

func TestRegistry_ResultBoundsAndProvenance(t *testing.T) {
	src := newMapSource()
	src.set("/docs/a.html", "cats one", "dogs two", "birds three")
	src.set("/docs/b.html", "cats four")
	emb := newVocabEmbedder("cats", "dogs", "birds")
	r := newTestRegistry(src, emb)
	ctx := context.Background()
	paths := []string{"/docs/a.html", "/docs/b.html"}

	_, err := r.Build(ctx, "k", paths)
	require.NoError(t, err)

	for k := 1; k <= 6; k++ {
		results, err := r.Search(ctx, "k", "cats", k)
		require.NoError(t, err)
		assert.Len(t, results, min(k, 4))
		for _, res := range results {
			assert.Contains(t, paths, res.Document.Source())
		}
	}

	_, err = r.Search(ctx, "k", "cats", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
}

func TestRegistry_SearchBatchOrdering(t *testing.T) {
	src := newMapSource()
	src.set("/a", "all about cats", "all about dogs")
	emb := newVocabEmbedder("cats", "dogs")
	r := newTestRegistry(src, emb)
	ctx := context.Background()

	_, err := r.Build(ctx, "k", []string{"/a"})
	require.NoError(t, err)

	before := emb.calls.Load()
	groups, err := r.SearchBatch(ctx, "k", []string{"dogs", "cats"}, 1)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"all about dogs"}, texts(groups[0]))
	assert.Equal(t, []string{"all about cats"}, texts(groups[1]))
	assert.Equal(t, before+1, emb.calls.Load())

	groups, err = r.SearchBatch(ctx, "k", nil, 1)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRegistry_FailedRebuildKeepsPreviousStore(t *testing.T) {
	src := newMapSource()
	src.set("/a", "old cats")
	emb := newVocabEmbedder("cats", "old", "new")
	r := newTestRegistry(src, emb)
	ctx := context.Background()

	first, err := r.Build(ctx, "k", []string{"/a"})
	require.NoError(t, err)

	src.setErr("/a", &domain.PartitionError{Path: "/a", Err: errors.New("corrupt")})
	_, err = r.Build(ctx, "k", []string{"/a"})
	var perr *domain.PartitionError
	require.ErrorAs(t, err, &perr)

	src.set("/a", "new cats")
	emb.fail.Store(true)
	_, err = r.Build(ctx, "k", []string{"/a"})
	require.Error(t, err)
	emb.fail.Store(false)

	info, ok := r.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, first.BuildID, info.BuildID)
	results, err := r.Search(ctx, "k", "cats", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"old cats"}, texts(results))

	_, err = r.Build(ctx, "k", []string{"/a", "/missing"})
	require.Error(t, err)
	results, err = r.Search(ctx, "k", "cats", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"old cats"}, texts(results))
}

func TestRegistry_RebuildIsAtomic(t *testing.T) {
	const docsPerStore = 20
	src := newMapSource()
	oldTexts := make([]string, docsPerStore)
	newTexts := make([]string, docsPerStore)
	for i := range docsPerStore {
		oldTexts[i] = fmt.Sprintf("old cats %d", i)
		newTexts[i] = fmt.Sprintf("new cats %d", i)
	}
	src.set("/old", oldTexts...)
	src.set("/new", newTexts...)
	r := newTestRegistry(src, newVocabEmbedder("cats", "old", "new"))
	ctx := context.Background()

	_, err := r.Build(ctx, "k", []string{"/old"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := r.Search(ctx, "k", "cats", docsPerStore)
				if !assert.NoError(t, err) {
					return
				}
				src := results[0].Document.Source()
				for _, res := range results {
					if !assert.Equal(t, src, res.Document.Source(), "mixed store contents") {
						return
					}
				}
			}
		}()
	}

	for i := range 20 {
		path := "/new"
		if i%2 == 1 {
			path = "/old"
		}
		_, err := r.Build(ctx, "k", []string{path})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestRegistry_ConcurrentKeys(t *testing.T) {
	src := newMapSource()
	for i := range 8 {
		src.set(fmt.Sprintf("/f%d", i), fmt.Sprintf("cats %d", i))
	}
	r := newTestRegistry(src, newVocabEmbedder("cats"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			_, err := r.Build(ctx, key, []string{fmt.Sprintf("/f%d", i)})
			assert.NoError(t, err)
			results, err := r.Search(ctx, key, "cats", 3)
			assert.NoError(t, err)
			assert.Equal(t, []string{fmt.Sprintf("cats %d", i)}, texts(results))
		}()
	}
	wg.Wait()
	assert.Len(t, r.Keys(), 8)
}

func TestRegistry_RemoveAndClear(t *testing.T) {
	src := newMapSource()
	src.set("/a", "cats")
	r := newTestRegistry(src, newVocabEmbedder("cats"))
	ctx := context.Background()

	for _, k := range []string{"b", "a"} {
		_, err := r.Build(ctx, k, []string{"/a"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b"}, r.Keys())

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	_, err := r.Search(ctx, "a", "cats", 1)
	assert.True(t, domain.IsUnknownStore(err))

	r.Clear()
	assert.Empty(t, r.Keys())
}

func TestRegistry_Cancelled(t *testing.T) {
	src := newMapSource()
	src.set("/a", "cats")
	r := newTestRegistry(src, newVocabEmbedder("cats"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Build(ctx, "k", []string{"/a"})
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := r.Lookup("k")
	assert.False(t, ok)
}

func TestRegistry_EndToEndWithHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	require.NoError(t, os.WriteFile(path, []byte(
		`<html><body><p>Intro text.</p><h1>About</h1><p>Body text about cats.</p></body></html>`), 0644))

	chunks := cache.New(partition.NewRouter(nil), chunker.NewTitleChunker(500, 0))
	r := NewRegistry(chunks, embedding.NewHashingEmbedder(384, true), index.NewBuilder())
	ctx := context.Background()

	info, err := r.Build(ctx, "docs", []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, info.DocumentCount)

	results, err := r.Search(ctx, "docs", "cats", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "About\n\nBody text about cats.", results[0].Document.Text)
	assert.Equal(t, path, results[0].Document.Source())
	assert.Equal(t, "a.html", results[0].Document.Metadata[domain.MetaFilename])

	_, err = r.Build(ctx, "docs", []string{path})
	require.NoError(t, err)
	assert.Equal(t, int64(1), chunks.Stats().Computations)
}
