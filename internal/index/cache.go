// Package index keeps the derived prompt index: an in-memory snapshot of every
// prompt's metadata mirrored to index.json under the storage root.
//
// The snapshot is never the source of truth. Every mutator writes the new
// snapshot to disk before swapping it into memory, so a failed write leaves
// the cache exactly as it was. Rebuild re-derives everything from the
// document files.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/storage"
)

// SnapshotFile is the index path relative to the storage root.
const SnapshotFile = "index.json"

// Scanner is the authoritative source a rebuild reads from.
type Scanner interface {
	ScanAll() ([]models.PromptMetadata, error)
	ListFolders() ([]string, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache holds the index snapshot. The zero state is unloaded; the first Get or
// mutation loads index.json (or starts empty when it does not exist).
type Cache struct {
	files   storage.Provider
	scanner Scanner
	logger  *slog.Logger
	now     func() time.Time

	// writeMu serializes mutators across load, persist and swap.
	writeMu sync.Mutex
	// mu guards snap only; it is never held during I/O.
	mu   sync.RWMutex
	snap *models.PromptIndex
}

// NewCache creates an unloaded cache.
func NewCache(files storage.Provider, scanner Scanner, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		files:   files,
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads index.json into memory, replacing whatever was cached. A missing
// file yields an empty snapshot; an undecodable one fails with ErrMalformed and
// leaves the cache unloaded.
func (c *Cache) Load() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	snap, err := c.readSnapshot()
	if err != nil {
		return err
	}
	c.swap(snap)
	return nil
}

// Get returns a deep copy of the current snapshot, loading it on first use.
func (c *Cache) Get() (models.PromptIndex, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap.Clone(), nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	snap, err := c.current()
	if err != nil {
		return models.PromptIndex{}, err
	}
	return snap.Clone(), nil
}

// Rebuild replaces the snapshot with one derived from a full scan. Nothing is
// carried over from the previous snapshot. Tags come from the scanned
// entries. Folders are the union of the entries' folders and every folder
// directory found under prompts/, so an empty directory is still listed.
func (c *Cache) Rebuild() (models.PromptIndex, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	entries, err := c.scanner.ScanAll()
	if err != nil {
		return models.PromptIndex{}, err
	}
	dirs, err := c.scanner.ListFolders()
	if err != nil {
		return models.PromptIndex{}, err
	}

	next := &models.PromptIndex{
		Version: models.IndexVersion,
		Prompts: make([]models.PromptMetadata, 0, len(entries)),
		Folders: []string{},
		Tags:    []string{},
	}
	for _, e := range entries {
		next.Prompts = append(next.Prompts, e.Clone())
		next.Folders = addFolder(next.Folders, e.Folder)
		for _, t := range e.Tags {
			next.Tags = addSorted(next.Tags, t)
		}
	}
	for _, d := range dirs {
		next.Folders = addFolder(next.Folders, d)
	}

	if err := c.commit(next); err != nil {
		return models.PromptIndex{}, err
	}
	c.logger.Info("index: rebuilt", slog.Int("prompts", len(next.Prompts)), slog.Int("folders", len(next.Folders)))
	return next.Clone(), nil
}

// Upsert inserts m, replacing any entry with the same id, and grows the known
// folder and tag sets.
func (c *Cache) Upsert(m models.PromptMetadata) error {
	return c.mutate(func(ix *models.PromptIndex) bool {
		ix.Prompts = removeID(ix.Prompts, m.ID)
		ix.Prompts = append(ix.Prompts, m.Clone())
		ix.Folders = addFolder(ix.Folders, m.Folder)
		for _, t := range m.Tags {
			ix.Tags = addSorted(ix.Tags, t)
		}
		return true
	})
}

// Remove drops the entry with id. Removing an unknown id succeeds without
// touching the snapshot file.
func (c *Cache) Remove(id string) error {
	return c.mutate(func(ix *models.PromptIndex) bool {
		n := len(ix.Prompts)
		ix.Prompts = removeID(ix.Prompts, id)
		return len(ix.Prompts) != n
	})
}

// BumpUsage increments the entry's use count and stamps at as its last use.
// An unknown id is a no-op: the document file already holds the truth.
func (c *Cache) BumpUsage(id string, at time.Time) error {
	return c.mutate(func(ix *models.PromptIndex) bool {
		for i := range ix.Prompts {
			if ix.Prompts[i].ID == id {
				t := at.UTC()
				ix.Prompts[i].UseCount++
				ix.Prompts[i].LastUsedAt = &t
				return true
			}
		}
		return false
	})
}

// AddFolder records name in the known folder set.
func (c *Cache) AddFolder(name string) error {
	return c.mutate(func(ix *models.PromptIndex) bool {
		n := len(ix.Folders)
		ix.Folders = addFolder(ix.Folders, name)
		return len(ix.Folders) != n
	})
}

// mutate applies fn to a copy of the current snapshot and commits the copy
// when fn reports a change.
func (c *Cache) mutate(fn func(ix *models.PromptIndex) bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, err := c.current()
	if err != nil {
		return err
	}
	next := cur.Clone()
	if !fn(&next) {
		return nil
	}
	return c.commit(&next)
}

// current returns the cached snapshot, loading it if needed. Callers hold writeMu.
func (c *Cache) current() (*models.PromptIndex, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	snap, err := c.readSnapshot()
	if err != nil {
		return nil, err
	}
	c.swap(snap)
	return snap, nil
}

// commit stamps, persists, then swaps. Callers hold writeMu.
func (c *Cache) commit(next *models.PromptIndex) error {
	next.Version = models.IndexVersion
	next.UpdatedAt = c.now().UTC()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode index: %w", apperr.ErrIO, err)
	}
	if err := c.files.Write(SnapshotFile, data); err != nil {
		return err
	}
	c.swap(next)
	return nil
}

func (c *Cache) swap(next *models.PromptIndex) {
	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
}

func (c *Cache) readSnapshot() (*models.PromptIndex, error) {
	data, err := c.files.Read(SnapshotFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptySnapshot(), nil
		}
		return nil, err
	}
	var snap models.PromptIndex
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrMalformed, SnapshotFile, err)
	}
	if snap.Prompts == nil {
		snap.Prompts = []models.PromptMetadata{}
	}
	if snap.Folders == nil {
		snap.Folders = []string{}
	}
	if snap.Tags == nil {
		snap.Tags = []string{}
	}
	sort.Strings(snap.Folders)
	sort.Strings(snap.Tags)
	return &snap, nil
}

func emptySnapshot() *models.PromptIndex {
	return &models.PromptIndex{
		Version: models.IndexVersion,
		Prompts: []models.PromptMetadata{},
		Folders: []string{},
		Tags:    []string{},
	}
}

func removeID(entries []models.PromptMetadata, id string) []models.PromptMetadata {
	out := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// addFolder adds a folder name to the sorted set s. The empty name is the
// prompts/ root, which is not a folder.
func addFolder(s []string, name string) []string {
	if name == "" {
		return s
	}
	return addSorted(s, name)
}

// addSorted inserts v into the sorted set s. The empty string is a value like
// any other.
func addSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
