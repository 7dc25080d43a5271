// Package settings holds the process-wide user settings record persisted as
// settings.json. The file may be hand-edited; comments and trailing commas are
// accepted when reading.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/tailscale/hujson"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/storage"
)

// File is the settings path relative to the storage root.
const File = "settings.json"

// Store caches the settings record. It loads on first use and writes through
// on every update.
type Store struct {
	files storage.Provider

	writeMu sync.Mutex
	mu      sync.RWMutex
	cur     *models.Settings
}

// New creates an unloaded settings store.
func New(files storage.Provider) *Store {
	return &Store{files: files}
}

// Get returns the cached settings, reading settings.json (or the defaults
// when it does not exist) on first use. Fields absent from the file keep
// their default values.
func (s *Store) Get() (models.Settings, error) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	if cur != nil {
		return *cur, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	cur = s.cur
	s.mu.RUnlock()
	if cur != nil {
		return *cur, nil
	}

	loaded, err := Read(s.files)
	if err != nil {
		return models.Settings{}, err
	}
	s.swap(&loaded)
	return loaded, nil
}

// Update validates next, persists it, then replaces the cached record. The
// caller supplies the full record. On failure the cache is unchanged.
func (s *Store) Update(next models.Settings) (models.Settings, error) {
	if err := next.Validate(); err != nil {
		return models.Settings{}, fmt.Errorf("%w: settings: %w", apperr.ErrInvalidInput, err)
	}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return models.Settings{}, fmt.Errorf("%w: encode settings: %w", apperr.ErrIO, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.files.Write(File, data); err != nil {
		return models.Settings{}, err
	}
	s.swap(&next)
	return next, nil
}

func (s *Store) swap(next *models.Settings) {
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
}

// Read decodes settings.json below files' root without caching. A missing
// file yields the defaults. Used at startup to find a relocated storage root
// before the rest of the stores exist.
func Read(files storage.Provider) (models.Settings, error) {
	out := models.DefaultSettings()
	data, err := files.Read(File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return models.Settings{}, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return models.Settings{}, fmt.Errorf("%w: %s: %w", apperr.ErrMalformed, File, err)
	}
	if err := json.Unmarshal(std, &out); err != nil {
		return models.Settings{}, fmt.Errorf("%w: %s: %w", apperr.ErrMalformed, File, err)
	}
	return out, nil
}
