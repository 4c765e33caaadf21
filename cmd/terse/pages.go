package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/internal/watch"
	"github.com/vango-dev/terse/pkg/spec"
)

// loadSpecFile parses a JSON or YAML spec file by extension.
func loadSpecFile(path string) (*spec.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree *spec.Tree
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		tree, err = spec.ParseYAML(data)
	case ".json":
		tree, err = spec.Parse(data)
	default:
		return nil, fmt.Errorf("%s: not a .json, .yaml or .yml file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

func pageName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pageSet holds the spec files found directly in a directory, by name.
type pageSet struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	trees map[string]*spec.Tree
}

func loadPages(dir string, logger *slog.Logger) (*pageSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Newf("E110", "pages.dir: %v", err).Wrap(err)
	}
	ps := &pageSet{dir: dir, logger: logger, trees: map[string]*spec.Tree{}}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !watch.SpecFiles(path) {
			continue
		}
		tree, err := loadSpecFile(path)
		if err != nil {
			return nil, err
		}
		ps.trees[pageName(path)] = tree
	}
	return ps, nil
}

func (ps *pageSet) lookup(name string) (*spec.Tree, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	t, ok := ps.trees[name]
	return t, ok
}

func (ps *pageSet) names() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]string, 0, len(ps.trees))
	for name := range ps.trees {
		out = append(out, name)
	}
	return out
}

// apply updates pages from a batch of changes. A file that fails to parse
// keeps its previous version.
func (ps *pageSet) apply(changes []watch.Change) {
	for _, c := range changes {
		if filepath.Dir(c.Path) != filepath.Clean(ps.dir) {
			continue
		}
		name := pageName(c.Path)
		if c.Op == watch.Removed || c.Op == watch.Renamed {
			if _, err := os.Stat(c.Path); err != nil {
				ps.mu.Lock()
				delete(ps.trees, name)
				ps.mu.Unlock()
				ps.logger.Info("page removed", "page", name)
				continue
			}
		}
		tree, err := loadSpecFile(c.Path)
		if err != nil {
			ps.logger.Warn("page reload failed", "page", name, "code", errors.CodeOf(err), "error", err)
			continue
		}
		ps.mu.Lock()
		ps.trees[name] = tree
		ps.mu.Unlock()
		ps.logger.Info("page reloaded", "page", name, "op", c.Op.String())
	}
}
