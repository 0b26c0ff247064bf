// Package watch rebuilds when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// DefaultDebounce groups the bursts of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc is called with the sorted, deduplicated paths that changed
// since the previous call, relative to the watched root.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher watches every directory below Root for changes to files with
// Extension.
type Watcher struct {
	Root      string
	Extension string
	Debounce  time.Duration

	watcher *fsnotify.Watcher
}

// New creates a Watcher for root. Nothing is watched until Run.
func New(root, extension string) *Watcher {
	return &Watcher{Root: root, Extension: extension, Debounce: DefaultDebounce}
}

// Run watches until ctx is done, calling rebuild after each quiet period that
// followed at least one relevant change. Rebuild errors are logged and do
// not stop the loop.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	logger := ctxlog.FromContext(ctx).With("root", w.Root)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher
	defer watcher.Close()

	if err := w.addTree(w.Root); err != nil {
		return err
	}
	logger.Info("👀 Watching source tree for changes")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					logger.Warn("Failed to watch new directory.", "dir", event.Name, "error", err)
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != w.Extension {
				continue
			}
			rel, err := filepath.Rel(w.Root, event.Name)
			if err != nil {
				rel = event.Name
			}
			logger.Debug("Source file changed.", "event", event.Op.String(), "file", rel)
			pending[filepath.ToSlash(rel)] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error.", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)

			logger.Info("🔁 Rebuilding after changes", "files", len(changed))
			if err := rebuild(ctx, changed); err != nil {
				logger.Error("Rebuild failed.", "error", err)
			}
		}
	}
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
