// Package scanner walks a target repository and aggregates the callable
// units discovered by the enabled analyzers.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hornetlabs/hornet/internal/analyzer"
	"github.com/hornetlabs/hornet/internal/unit"
)

// skipDirs are never descended into: version-control metadata, dependency
// trees, caches, and hornet's own state directory.
var skipDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	".hornet":       {},
	"node_modules":  {},
	"__pycache__":   {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	"dist":          {},
	"build":         {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// Scanner discovers units across a repository. Discovery per file is a pure
// function of that file's contents, so files are processed in parallel and
// merged back in path order.
type Scanner struct {
	registry *analyzer.Registry
	logger   *zap.Logger
	extra    *ignore.GitIgnore // repo-level ignore overrides, may be nil
	workers  int
}

// New creates a Scanner over the given analyzer registry.
func New(registry *analyzer.Registry, logger *zap.Logger) *Scanner {
	return &Scanner{registry: registry, logger: logger, workers: 4}
}

// SetIgnorePatterns installs additional gitignore-style patterns, typically
// from the repo's .hornet.yaml override file.
func (s *Scanner) SetIgnorePatterns(patterns []string) {
	if len(patterns) == 0 {
		s.extra = nil
		return
	}
	s.extra = ignore.CompileIgnoreLines(patterns...)
}

// SetWorkers bounds the per-file parallelism.
func (s *Scanner) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Scan walks root and returns all discovered units, deduplicated by
// (file, name) and ordered by (file path, declaration order). A file that
// fails to parse is logged and contributes zero units; it never aborts the
// scan.
func (s *Scanner) Scan(ctx context.Context, root string) ([]unit.Unit, error) {
	files, err := s.listFiles(root)
	if err != nil {
		return nil, err
	}

	perFile := make([][]unit.Unit, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(root, rel))
			if err != nil {
				s.logger.Warn("skipping unreadable file", zap.String("file", rel), zap.Error(err))
				return nil
			}
			a, ok := s.registry.Resolve(rel, head(src))
			if !ok {
				return nil
			}
			units, err := a.Discover(rel, src)
			if err != nil {
				s.logger.Warn("skipping unparseable file",
					zap.String("file", rel),
					zap.String("language", a.Language()),
					zap.Error(err))
				return nil
			}
			perFile[i] = units
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[unit.ID]struct{})
	var all []unit.Unit
	for _, units := range perFile {
		for _, u := range units {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			all = append(all, u)
		}
	}

	s.logger.Info("scan complete",
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int("units", len(all)))
	return all, nil
}

// listFiles returns candidate file paths relative to root, sorted.
func (s *Scanner) listFiles(root string) ([]string, error) {
	gi := loadGitignore(root)

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if s.extra != nil && s.extra.MatchesPath(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

func head(src []byte) []byte {
	if len(src) > 256 {
		return src[:256]
	}
	return src
}
