package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/snapshot"
	"github.com/starford/raido/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "assigned", "moved", "removed".
type EventCallback func(kind, id string, loc location.Location)

const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the tree root and keeps the index in
// step with document edits until ctx is cancelled. Events on tracked
// documents are debounced into a single resync; the identifier mapping
// before and after the resync is diffed so that a rename, which arrives as
// a Remove on the old path plus a Create on the new one, surfaces as one
// "moved" event rather than a delete/add pair.
//
// New directories created at runtime are automatically added to the watch
// list.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	scheduleSync := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(debounce)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			resync(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories get added to the watch list; their content
			// arrives through the same debounced resync.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					scheduleSync()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, storage.DocExtension) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleSync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// resync runs a full Sync and reports the identifier-level delta through cb.
func resync(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	before, err := db.Mapping()
	if err != nil {
		logger.Warn("watcher: mapping failed", slog.String("error", err.Error()))
		return
	}
	if err := Sync(db, store, logger); err != nil {
		logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
		return
	}
	after, err := db.Mapping()
	if err != nil {
		logger.Warn("watcher: mapping failed", slog.String("error", err.Error()))
		return
	}

	if cb == nil {
		return
	}
	delta := snapshot.Diff(before, after)
	for _, id := range delta.Added {
		cb("assigned", id, after[id])
	}
	for _, m := range delta.Moved {
		logger.Info("watcher: document moved",
			slog.String("id", m.ID),
			slog.String("from", string(m.From)),
			slog.String("to", string(m.To)))
		cb("moved", m.ID, m.To)
	}
	for _, id := range delta.Removed {
		cb("removed", id, before[id])
	}
}

// addDirsRecursive adds root and all nested directories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
