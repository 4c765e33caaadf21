// Package watch reports batched file changes under a directory tree.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of a change.
type Op uint8

const (
	Created Op = iota + 1
	Modified
	Removed
	Renamed
)

func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	}
	return "unknown"
}

// Change is one changed path. Within a batch each path appears once with
// its latest op.
type Change struct {
	Path string
	Op   Op
}

// Filter reports whether a path is of interest.
type Filter func(path string) bool

// SpecFiles accepts JSON and YAML files.
func SpecFiles(path string) bool {
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Watcher watches directory trees and batches changes that arrive within
// the debounce delay of each other.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	logger   *slog.Logger
}

// New creates a watcher. A nil filter accepts everything.
func New(debounce time.Duration, filter Filter, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Watcher{fs: fw, debounce: debounce, filter: filter, logger: logger}, nil
}

// Add watches root and every directory below it.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fs.Add(path)
	})
}

// Run delivers batches to fn until ctx is done, then closes the watcher.
// fn runs on the watcher's goroutine.
func (w *Watcher) Run(ctx context.Context, fn func([]Change)) error {
	defer w.fs.Close()

	pending := map[string]Op{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						w.logger.Warn("watch directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.filter(ev.Name) {
				continue
			}
			op := opOf(ev.Op)
			if op == 0 {
				continue
			}
			if prev, ok := pending[ev.Name]; ok && prev == Created && op == Modified {
				op = Created
			}
			pending[ev.Name] = op
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timer.C:
			fn(batch(pending))
			pending = map[string]Op{}
		}
	}
}

func opOf(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Write):
		return Modified
	case op.Has(fsnotify.Remove):
		return Removed
	case op.Has(fsnotify.Rename):
		return Renamed
	}
	return 0
}

func batch(pending map[string]Op) []Change {
	out := make([]Change, 0, len(pending))
	for path, op := range pending {
		out = append(out, Change{Path: path, Op: op})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
