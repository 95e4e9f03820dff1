package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/storage"
)

// watcherTestEnv sets up a tree dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	treeDir := t.TempDir()
	store, err := storage.NewFS(treeDir)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "raido-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return treeDir, store, db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, id string) bool {
	_, err := db.GetDocument(id)
	return err == nil
}

func TestWatcher_NewDocumentIndexed(t *testing.T) {
	treeDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, treeDir, logger, func(kind, id string, loc location.Location) {
		mu.Lock()
		events = append(events, kind+":"+id)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(treeDir, "new.md"), []byte("---\nid: new\n---\n# New\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "new")
	}, "new document not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "assigned:new" {
				return true
			}
		}
		return false
	}, "expected assigned:new callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	treeDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, treeDir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(treeDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("---\nid: deep\n---\n# Deep\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "deep")
	}, "document in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	treeDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(treeDir, "del.md"), []byte("---\nid: del\n---\n# Delete Me\n"), 0o644)
	Sync(db, store, logger)

	if !indexed(db, "del") {
		t.Fatal("precondition: document should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, treeDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(treeDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetDocument("del")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted document still in index")
}

func TestWatcher_RenameSurfacesAsMove(t *testing.T) {
	treeDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(treeDir, "old.md"), []byte("---\nid: doc\n---\n# Doc\n"), 0o644)
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, treeDir, logger, func(kind, id string, loc location.Location) {
		mu.Lock()
		events = append(events, kind+":"+id+":"+string(loc))
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(treeDir, "old.md"), filepath.Join(treeDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		row, err := db.GetDocument("doc")
		return err == nil && row.Location == "renamed.md"
	}, "rename did not update the indexed location")

	// The identifier survived, so the delta is one move, not remove+assign.
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "moved:doc:renamed.md" {
				return true
			}
		}
		return false
	}, "expected moved:doc:renamed.md callback")
	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if strings.HasPrefix(e, "removed:") || strings.HasPrefix(e, "assigned:") {
			t.Errorf("rename produced %q, want a single move", e)
		}
	}
}
