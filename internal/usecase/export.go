package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"docrag/internal/adapter/partition"
	"docrag/internal/port"
)

// ErrExportPaths is returned when partition inputs and outputs are not both
// folders or a file and a .json file.
var ErrExportPaths = errors.New("input and output must be either both directories or a file and a .json file")

// ExportUseCase writes partition and chunk output to disk.
type ExportUseCase struct {
	partitioner port.Partitioner
	chunks      port.ChunkSource
	logger      *zap.Logger
}

func NewExportUseCase(partitioner port.Partitioner, chunks port.ChunkSource, logger *zap.Logger) *ExportUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportUseCase{partitioner: partitioner, chunks: chunks, logger: logger}
}

// PartitionResult summarises a partition run.
type PartitionResult struct {
	FilesWritten int
	Elements     int
	Failed       map[string]error
}

// Partition dispatches to PartitionDir or PartitionFile depending on the
// kinds of in and out.
func (u *ExportUseCase) Partition(ctx context.Context, in, out string, progress func(done, total int)) (*PartitionResult, error) {
	inInfo, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", in, err)
	}
	if inInfo.IsDir() {
		if outInfo, err := os.Stat(out); err == nil && outInfo.IsDir() {
			return u.PartitionDir(ctx, in, out, progress)
		}
		return nil, ErrExportPaths
	}
	if !strings.EqualFold(filepath.Ext(out), ".json") {
		return nil, ErrExportPaths
	}
	n, err := u.PartitionFile(ctx, in, out)
	if err != nil {
		return nil, err
	}
	return &PartitionResult{FilesWritten: 1, Elements: n}, nil
}

// PartitionFile writes the elements of in to out as a JSON array and returns
// the element count.
func (u *ExportUseCase) PartitionFile(ctx context.Context, in, out string) (int, error) {
	elements, err := u.partitioner.Partition(ctx, in)
	if err != nil {
		return 0, err
	}
	if err := writeJSON(out, partition.Records(elements)); err != nil {
		return 0, err
	}
	u.logger.Info("output saved", zap.String("input", in), zap.String("output", out), zap.Int("elements", len(elements)))
	return len(elements), nil
}

// PartitionDir partitions every file directly inside inDir into
// outDir/<name>.json, where name is the file name up to its first dot. A file
// that fails is recorded and skipped.
func (u *ExportUseCase) PartitionDir(ctx context.Context, inDir, outDir string, progress func(done, total int)) (*PartitionResult, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", inDir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	u.logger.Info("partitioning directory", zap.String("input", inDir), zap.Int("files", len(files)))
	result := &PartitionResult{Failed: make(map[string]error)}
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		base, _, _ := strings.Cut(name, ".")
		in := filepath.Join(inDir, name)
		n, err := u.PartitionFile(ctx, in, filepath.Join(outDir, base+".json"))
		if err != nil {
			u.logger.Error("failed to partition document", zap.String("file", in), zap.Error(err))
			result.Failed[in] = err
		} else {
			result.FilesWritten++
			result.Elements += n
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}
	return result, nil
}

type chunkExport struct {
	Documents []string `json:"documents"`
}

// ChunkFile writes the chunk texts of in to out as {"documents": [...]} and
// returns the chunk count.
func (u *ExportUseCase) ChunkFile(ctx context.Context, in, out string) (int, error) {
	chunks, err := u.chunks.GetChunks(ctx, in)
	if err != nil {
		return 0, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := writeJSON(out, chunkExport{Documents: texts}); err != nil {
		return 0, err
	}
	u.logger.Info("output saved", zap.String("input", in), zap.String("output", out), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
