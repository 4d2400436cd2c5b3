package imgembed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrSourceNotFound is returned when the configured source root does not exist.
var ErrSourceNotFound = errors.New("source directory not found")

// Scan walks root recursively and returns every recognized image below it.
// Files sitting directly in root have no category and are skipped. Records
// come back in lexical order of their relative path.
func Scan(ctx context.Context, root string) ([]ImageRecord, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, root)
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, root)
	}

	sc := &scanner{ctx: ctx, root: root, visited: make(map[string]bool)}
	if err := sc.walk(root); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return sc.records, nil
}

// scanner follows symlinked directories. visited holds resolved directory
// paths so a link back to an ancestor is walked only once.
type scanner struct {
	ctx     context.Context
	root    string
	visited map[string]bool
	records []ImageRecord
}

// walk visits the tree at logical, a path below root that may itself be a
// symlink. Records keep the logical path, not the resolved one.
func (s *scanner) walk(logical string) error {
	target, err := filepath.EvalSymlinks(logical)
	if err != nil {
		return err
	}
	if s.visited[target] {
		slog.Warn("skipping directory already scanned", "path", logical, "target", target)
		return nil
	}
	s.visited[target] = true

	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(target, path)
		if relErr != nil {
			return relErr
		}
		lpath := filepath.Join(logical, rel)
		if err != nil {
			if path == target {
				return err
			}
			slog.Warn("skipping unreadable entry", "path", lpath, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path == target {
				return nil
			}
			if resolved, err := filepath.EvalSymlinks(path); err == nil {
				if s.visited[resolved] {
					return filepath.SkipDir
				}
				s.visited[resolved] = true
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return s.walk(lpath)
			}
		}
		if !IsImage(d.Name()) {
			return nil
		}

		dir := filepath.Dir(lpath)
		if filepath.Clean(dir) == filepath.Clean(s.root) {
			return nil
		}
		relRoot, err := filepath.Rel(s.root, lpath)
		if err != nil {
			return err
		}
		s.records = append(s.records, ImageRecord{
			Filename:     d.Name(),
			SourcePath:   lpath,
			RelativePath: filepath.ToSlash(relRoot),
			Category:     filepath.Base(dir),
		})
		return nil
	})
}
