// Package testutil provides shared test helpers for storage roots, path hint
// databases and failure injection.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/locator"
	"github.com/starford/promptpad/internal/storage"
)

// TestRoot creates a temporary storage root with a storage.FS provider.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, files
}

// TestLocator opens a path hint database inside a temporary directory.
func TestLocator(t *testing.T) *locator.DB {
	t.Helper()
	db, err := locator.Open(filepath.Join(t.TempDir(), "locations.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FaultFS wraps a Provider and fails selected operations on demand.
type FaultFS struct {
	storage.Provider

	mu         sync.Mutex
	failWrites map[string]bool
	failMoves  bool
}

// NewFaultFS wraps p.
func NewFaultFS(p storage.Provider) *FaultFS {
	return &FaultFS{Provider: p, failWrites: make(map[string]bool)}
}

// FailWrites makes every Write to path fail until cleared with fail=false.
func (f *FaultFS) FailWrites(path string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites[path] = fail
}

// FailWritesAnywhere makes every Write fail until cleared.
func (f *FaultFS) FailWritesAnywhere(fail bool) {
	f.FailWrites("*", fail)
}

// FailMoves makes every Move fail until cleared.
func (f *FaultFS) FailMoves(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMoves = fail
}

// Write fails when the path (or "*") was marked, otherwise delegates.
func (f *FaultFS) Write(path string, content []byte) error {
	f.mu.Lock()
	fail := f.failWrites[path] || f.failWrites["*"]
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: injected write failure: %s", apperr.ErrIO, path)
	}
	return f.Provider.Write(path, content)
}

// Move fails when moves were marked, otherwise delegates.
func (f *FaultFS) Move(oldPath, newPath string) error {
	f.mu.Lock()
	fail := f.failMoves
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: injected move failure: %s", apperr.ErrIO, oldPath)
	}
	return f.Provider.Move(oldPath, newPath)
}
