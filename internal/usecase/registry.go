package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const (
	DefaultBuildWorkers = 4
	DefaultBatchTopK    = 5
)

// Registry owns the named retriever stores. A store is built in full before it
// replaces the previous store under the same key, so searches see either the
// old or the new store and never a partial one.
type Registry struct {
	chunks   port.ChunkSource
	embedder port.Embedder
	builder  port.IndexBuilder
	workers  int
	logger   *zap.Logger

	mu     sync.RWMutex
	stores map[string]*storeEntry

	buildMu  sync.Mutex
	building map[string]*sync.Mutex
}

type storeEntry struct {
	info  domain.StoreInfo
	index port.Index
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBuildWorkers bounds how many files are chunked concurrently per build.
func WithBuildWorkers(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(chunks port.ChunkSource, embedder port.Embedder, builder port.IndexBuilder, opts ...RegistryOption) *Registry {
	r := &Registry{
		chunks:   chunks,
		embedder: embedder,
		builder:  builder,
		workers:  DefaultBuildWorkers,
		logger:   zap.NewNop(),
		stores:   make(map[string]*storeEntry),
		building: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build indexes the chunks of paths under key. On any error the store
// previously registered under key, if any, is left in place. Builds of the
// same key run one at a time.
func (r *Registry) Build(ctx context.Context, key string, paths []string) (domain.StoreInfo, error) {
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	if len(paths) == 0 {
		return domain.StoreInfo{}, &domain.EmptyInputError{Key: key}
	}

	perPath := make([][]domain.Chunk, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		g.Go(func() error {
			chunks, err := r.chunks.GetChunks(gctx, path)
			if err != nil {
				return err
			}
			perPath[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("store build failed", zap.String("key", key), zap.Error(err))
		return domain.StoreInfo{}, err
	}

	var docs []domain.Document
	var sources []string
	seen := make(map[string]bool)
	for _, chunks := range perPath {
		for _, c := range chunks {
			docs = append(docs, c.Document())
			if !seen[c.SourceFile] {
				seen[c.SourceFile] = true
				sources = append(sources, c.SourceFile)
			}
		}
	}
	if len(docs) == 0 {
		return domain.StoreInfo{}, &domain.EmptyInputError{Key: key, Paths: paths}
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.StoreInfo{}, fmt.Errorf("embed documents for %q: %w", key, err)
	}
	if len(vectors) != len(docs) {
		return domain.StoreInfo{}, fmt.Errorf("embed documents for %q: got %d vectors for %d documents", key, len(vectors), len(docs))
	}

	index, err := r.builder.Build(ctx, docs, vectors)
	if err != nil {
		return domain.StoreInfo{}, fmt.Errorf("build index for %q: %w", key, err)
	}

	info := domain.StoreInfo{
		Key:           key,
		BuildID:       uuid.NewString(),
		DocumentCount: index.Len(),
		Sources:       sources,
		Model:         r.embedder.ModelName(),
		BuiltAt:       time.Now(),
	}

	r.mu.Lock()
	r.stores[key] = &storeEntry{info: info, index: index}
	r.mu.Unlock()

	r.logger.Info("built store",
		zap.String("key", key),
		zap.String("build_id", info.BuildID),
		zap.Int("documents", info.DocumentCount),
		zap.Int("sources", len(sources)),
		zap.Duration("elapsed", time.Since(start)))
	return info, nil
}

func (r *Registry) keyLock(key string) *sync.Mutex {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	m, ok := r.building[key]
	if !ok {
		m = &sync.Mutex{}
		r.building[key] = m
	}
	return m
}

func (r *Registry) entry(key string) (*storeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stores[key]
	if !ok {
		return nil, &domain.UnknownStoreError{Key: key}
	}
	return e, nil
}

// Search returns up to topK documents of store key, most similar first.
func (r *Registry) Search(ctx context.Context, key, query string, topK int) ([]domain.ScoredDocument, error) {
	e, err := r.entry(key)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	results, err := e.index.Search(vectors[0], topK)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("searched store",
		zap.String("key", key), zap.String("build_id", e.info.BuildID), zap.Int("results", len(results)))
	return results, nil
}

// SearchBatch runs every query against one snapshot of store key. Result i
// belongs to queries[i].
func (r *Registry) SearchBatch(ctx context.Context, key string, queries []string, topK int) ([][]domain.ScoredDocument, error) {
	e, err := r.entry(key)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(queries) == 0 {
		return [][]domain.ScoredDocument{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return nil, fmt.Errorf("embed queries: got %d vectors for %d queries", len(vectors), len(queries))
	}

	out := make([][]domain.ScoredDocument, len(queries))
	for i, v := range vectors {
		results, err := e.index.Search(v, topK)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = results
	}
	return out, nil
}

// Lookup returns the identity of store key.
func (r *Registry) Lookup(key string) (domain.StoreInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stores[key]
	if !ok {
		return domain.StoreInfo{}, false
	}
	return e.info, true
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove drops store key and reports whether it existed.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stores[key]
	delete(r.stores, key)
	return ok
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = make(map[string]*storeEntry)
}
