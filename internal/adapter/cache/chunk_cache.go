// Package cache memoises the chunk sequence of each source file.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// ChunkCache returns the chunks of a file, partitioning and chunking it at
// most once per normalised path while the entry stays cached. Concurrent
// misses for one path share a single computation. Failures are not cached.
type ChunkCache struct {
	partitioner port.Partitioner
	chunker     port.Chunker
	archive     port.ChunkArchive
	logger      *zap.Logger

	mu      sync.Mutex
	entries map[string][]domain.Chunk
	policy  EvictionPolicy

	group singleflight.Group

	hits         atomic.Int64
	misses       atomic.Int64
	computations atomic.Int64
}

// Stats reports cache counters. Computations counts partition+chunk runs;
// archive hits are not computations.
type Stats struct {
	Hits         int64
	Misses       int64
	Computations int64
	Entries      int
}

// Option configures a ChunkCache.
type Option func(*ChunkCache)

// WithArchive consults archive on a miss before partitioning.
func WithArchive(archive port.ChunkArchive) Option {
	return func(c *ChunkCache) { c.archive = archive }
}

func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(c *ChunkCache) {
		if p != nil {
			c.policy = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *ChunkCache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(partitioner port.Partitioner, chunker port.Chunker, opts ...Option) *ChunkCache {
	c := &ChunkCache{
		partitioner: partitioner,
		chunker:     chunker,
		logger:      zap.NewNop(),
		entries:     make(map[string][]domain.Chunk),
		policy:      Unbounded{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizePath returns the cache key for path.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// GetChunks returns the chunk sequence for path. A returned slice may be
// modified by the caller; the chunks' metadata maps are shared and must not be.
func (c *ChunkCache) GetChunks(ctx context.Context, path string) ([]domain.Chunk, error) {
	key, err := NormalizePath(path)
	if err != nil {
		return nil, &domain.PartitionError{Path: path, Err: err}
	}

	if chunks, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return slices.Clone(chunks), nil
	}
	c.misses.Add(1)

	// The shared computation ignores cancellation; each caller stops waiting
	// on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if chunks, ok := c.lookup(key); ok {
			return chunks, nil
		}
		return c.compute(flightCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Chunk)), nil
	}
}

func (c *ChunkCache) lookup(key string) ([]domain.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chunks, ok := c.entries[key]
	if ok {
		c.policy.Accessed(key)
	}
	return chunks, ok
}

func (c *ChunkCache) compute(ctx context.Context, key string) ([]domain.Chunk, error) {
	digest := c.digest(key)
	if digest != "" {
		chunks, ok, err := c.archive.Get(digest)
		switch {
		case err != nil:
			c.logger.Warn("chunk archive read failed", zap.String("path", key), zap.Error(err))
		case ok:
			c.logger.Debug("chunk archive hit", zap.String("path", key), zap.Int("chunks", len(chunks)))
			c.store(key, chunks)
			return chunks, nil
		}
	}

	elements, err := c.partitioner.Partition(ctx, key)
	if err != nil {
		var perr *domain.PartitionError
		if !errors.As(err, &perr) {
			err = &domain.PartitionError{Path: key, Err: err}
		}
		return nil, err
	}
	chunks, err := c.chunker.Chunk(elements)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", key, err)
	}
	c.computations.Add(1)
	c.logger.Debug("chunked file",
		zap.String("path", key), zap.Int("elements", len(elements)), zap.Int("chunks", len(chunks)))

	if digest != "" {
		if err := c.archive.Put(digest, chunks); err != nil {
			c.logger.Warn("chunk archive write failed", zap.String("path", key), zap.Error(err))
		}
	}
	c.store(key, chunks)
	return chunks, nil
}

// digest identifies a file's path and contents in the archive. It returns ""
// when no archive is configured or the file cannot be read.
func (c *ChunkCache) digest(key string) string {
	if c.archive == nil {
		return ""
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ChunkCache) store(key string, chunks []domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = chunks
	for _, evicted := range c.policy.Added(key) {
		delete(c.entries, evicted)
		c.logger.Debug("evicted chunks", zap.String("path", evicted))
	}
}

// Invalidate drops the cached chunks of path so the next call recomputes them.
func (c *ChunkCache) Invalidate(path string) {
	key, err := NormalizePath(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.policy.Removed(key)
}

func (c *ChunkCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]domain.Chunk)
	c.policy.Reset()
}

func (c *ChunkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ChunkCache) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Entries:      c.Len(),
	}
}
