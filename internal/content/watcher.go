package content

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// debounceDelay coalesces the burst of write events emitted while the
// generation pipeline rewrites a data file.
const debounceDelay = 200 * time.Millisecond

// Watcher reloads a Store's categories when their data files change on disk.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher creates a Watcher over the store's content directory.
// Call Run to start processing events and Close to release the inotify
// handle.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory, not the files: generators typically write a temp
	// file and rename it over the old one, which would orphan a per-file
	// watch.
	if err := fw.Add(store.dir); err != nil {
		fw.Close() //nolint:errcheck,gosec // Best-effort cleanup on error path
		return nil, fmt.Errorf("failed to watch %s: %w", store.dir, err)
	}

	return &Watcher{
		store:   store,
		watcher: fw,
		logger:  logger,
	}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	// Per-category debounce timers so a rewrite of tools.json does not delay
	// a concurrent rewrite of guides.json.
	pending := make(map[model.Category]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	reloads := make(chan model.Category)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case category := <-reloads:
			if err := w.store.Reload(category); err != nil {
				// Keep serving the previous snapshot.
				w.logger.Error("content reload failed",
					"category", category,
					"error", err)
				continue
			}
			w.logger.Info("content reloaded",
				"category", category,
				"pages", len(w.store.Pages(category)))

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			category, ok := categoryForPath(event.Name)
			if !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer, exists := pending[category]; exists {
				timer.Reset(debounceDelay)
				continue
			}
			pending[category] = time.AfterFunc(debounceDelay, func() {
				select {
				case reloads <- category:
				case <-ctx.Done():
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Close releases the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// categoryForPath maps a changed file path to its content category.
// Non-data files (editor temp files, unrelated writes) return false.
func categoryForPath(path string) (model.Category, bool) {
	base := filepath.Base(path)
	name, found := strings.CutSuffix(base, ".json")
	if !found {
		return "", false
	}
	category, err := model.ParseCategory(name)
	if err != nil {
		return "", false
	}
	return category, true
}
