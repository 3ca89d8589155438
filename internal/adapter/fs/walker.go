// Package fs expands folders into the document files they contain.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"docrag/internal/port"
)

// Walker lists files under a root whose root-relative path matches an
// include pattern and no exclude pattern.
type Walker struct {
	includes []string
	excludes []string
}

var _ port.FileWalker = (*Walker)(nil)

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns matching files under root in lexical order.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.shouldInclude(relPath) || w.shouldExclude(relPath) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, port.FileInfo{
			Path:    path,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})

	return files, err
}

// Expand replaces each folder in paths with the matching files it contains.
// Plain files are kept as given. A path that does not exist is an error.
func (w *Walker) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := w.Walk(p)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		found := make([]string, len(files))
		for i, f := range files {
			found[i] = f.Path
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

func (w *Walker) shouldInclude(path string) bool {
	return matchAny(w.includes, path)
}

func (w *Walker) shouldExclude(path string) bool {
	return matchAny(w.excludes, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}
