package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/partition"
	"docrag/internal/adapter/store"
	"docrag/internal/usecase"
)

// services wires the adapters for one command run.
type services struct {
	router   *partition.Router
	chunks   *cache.ChunkCache
	archive  *store.BoltArchive
	walker   *fs.Walker
	registry *usecase.Registry
}

func newServices(cfg *config.Config, withRegistry bool) (*services, error) {
	log := GetLogger()
	s := &services{
		router: partition.NewRouter(partition.NewPDFParser(cfg.Partition.PDFToText)),
		walker: fs.NewWalker(cfg.Walk.Includes, cfg.Walk.Excludes),
	}

	opts := []cache.Option{
		cache.WithLogger(log.Named("cache")),
		cache.WithEvictionPolicy(cache.PolicyFor(cfg.Cache.MaxEntries)),
	}
	if path := archivePath(cfg); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		archive, result, err := store.Open(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open chunk archive: %w", err)
		}
		if result.NeedsClear {
			log.Info("cleared chunk archive", zap.String("reason", result.Reason))
		}
		s.archive = archive
		opts = append(opts, cache.WithArchive(archive))
	}
	s.chunks = cache.New(s.router, chunker.NewTitleChunker(cfg.Chunking.MaxCharacters, cfg.Chunking.CombineUnder), opts...)

	if withRegistry {
		emb, err := embedding.New(cfg, log.Named("embedding"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		s.registry = usecase.NewRegistry(s.chunks, emb, index.NewBuilder(),
			usecase.WithBuildWorkers(cfg.Retrieve.BuildWorkers),
			usecase.WithRegistryLogger(log.Named("registry")))
	}
	return s, nil
}

// archivePath resolves cache.archive_path against the root directory.
// --persist selects the default location under .docrag when none is configured.
func archivePath(cfg *config.Config) string {
	p := cfg.Cache.ArchivePath
	if p == "" && persist {
		return config.ArchiveDBPath(GetRootDir())
	}
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetRootDir(), p)
}

func (s *services) Close() {
	if s.archive != nil {
		s.archive.Close()
	}
}
