// Package docstore owns the authoritative prompt files under prompts/<folder>/.
//
// Every operation performs its file I/O before returning; the index cache is
// updated afterwards by the caller and can always be regenerated from ScanAll.
// A prompt is located by decoding files and comparing ids, never by trusting
// its file name.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/checksum"
	"github.com/starford/promptpad/internal/frontmatter"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/storage"
)

// PromptsDir is the directory below the storage root that holds folder directories.
const PromptsDir = "prompts"

const fileExt = ".md"

// Location describes where a prompt file was found.
type Location struct {
	// Path is relative to the storage root, e.g. "prompts/work/standup.md".
	Path     string `json:"file_path"`
	Folder   string `json:"folder"`
	Checksum string `json:"checksum"`
}

// PathHints is an optional id -> path cache consulted before the linear scan.
// Implementations may be stale; the store only trusts a hint after decoding
// the hinted file and comparing its id.
type PathHints interface {
	Lookup(id string) (string, bool)
	Remember(id, path string) error
	Forget(id string) error
	Reset(paths map[string]string) error
}

// Option configures a Store.
type Option func(*Store)

// WithPathHints installs a path hint cache.
func WithPathHints(h PathHints) Option {
	return func(s *Store) { s.hints = h }
}

// WithClock overrides the time source used for created and last-used stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store reads and writes prompt files through a storage.Provider.
type Store struct {
	files  storage.Provider
	hints  PathHints
	logger *slog.Logger
	now    func() time.Time

	// mu serializes mutations so that free file names are reserved and
	// moves happen one at a time.
	mu sync.Mutex
}

// New creates a Store on top of files.
func New(files storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		files:  files,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates prompts/ and the default folder.
func (s *Store) Init() error {
	return s.files.Mkdir(path.Join(PromptsDir, models.DefaultFolder))
}

// Create writes a new prompt file and returns its metadata.
func (s *Store) Create(in models.CreateInput) (models.PromptMetadata, error) {
	if err := validateCreate(&in); err != nil {
		return models.PromptMetadata{}, err
	}

	folder := in.Folder
	if folder == "" {
		folder = models.DefaultFolder
	}
	created := in.Created
	if created.IsZero() {
		created = s.now()
	}

	fm := models.Frontmatter{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Tags:        cloneTags(in.Tags),
		Created:     created.UTC(),
	}
	data, err := frontmatter.Encode(fm, in.Content)
	if err != nil {
		return models.PromptMetadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := path.Join(PromptsDir, folder)
	if err := s.files.Mkdir(dir); err != nil {
		return models.PromptMetadata{}, err
	}
	rel, err := s.freePath(dir, slugify(in.Name))
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if err := s.files.Write(rel, data); err != nil {
		return models.PromptMetadata{}, err
	}
	s.remember(fm.ID, rel)

	return metadataFor(fm, rel), nil
}

// Read returns the prompt with the given id and where it was found.
func (s *Store) Read(id string) (models.Prompt, Location, error) {
	f, err := s.locate(id)
	if err != nil {
		return models.Prompt{}, Location{}, err
	}
	return f.prompt, f.loc, nil
}

// Content returns only the body of the prompt with the given id.
func (s *Store) Content(id string) (string, error) {
	f, err := s.locate(id)
	if err != nil {
		return "", err
	}
	return f.prompt.Content, nil
}

// Update applies the non-nil fields of in. A folder change moves the file
// first and then rewrites it at its new location.
func (s *Store) Update(id string, in models.UpdateInput) (models.PromptMetadata, error) {
	if err := validateUpdate(&in); err != nil {
		return models.PromptMetadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.locate(id)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if !checksum.Matches(in.IfMatch, f.raw) {
		return models.PromptMetadata{}, fmt.Errorf("%w: prompt %s changed since it was read", apperr.ErrConflict, id)
	}

	p := f.prompt
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Tags != nil {
		p.Tags = cloneTags(*in.Tags)
	}

	data, err := frontmatter.Encode(p.Frontmatter, p.Content)
	if err != nil {
		return models.PromptMetadata{}, err
	}

	target := f.loc.Path
	if in.Folder != nil {
		folder := *in.Folder
		if folder == "" {
			folder = models.DefaultFolder
		}
		if folder != f.loc.Folder {
			dir := path.Join(PromptsDir, folder)
			if err := s.files.Mkdir(dir); err != nil {
				return models.PromptMetadata{}, err
			}
			stem := strings.TrimSuffix(path.Base(f.loc.Path), fileExt)
			target, err = s.freePath(dir, stem)
			if err != nil {
				return models.PromptMetadata{}, err
			}
			if err := s.files.Move(f.loc.Path, target); err != nil {
				return models.PromptMetadata{}, err
			}
			s.remember(id, target)
		}
	}

	// After a move the previous contents are already at target, so a failed
	// write leaves the prompt readable there.
	if err := s.files.Write(target, data); err != nil {
		return models.PromptMetadata{}, err
	}
	return metadataFor(p.Frontmatter, target), nil
}

// Delete removes the prompt file with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.locate(id)
	if err != nil {
		return err
	}
	if err := s.files.Delete(f.loc.Path); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

// RecordUsage increments the use counter, stamps last-used and rewrites the file.
func (s *Store) RecordUsage(id string) (models.PromptMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.locate(id)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	p := f.prompt
	now := s.now().UTC()
	p.UseCount++
	p.LastUsedAt = &now

	data, err := frontmatter.Encode(p.Frontmatter, p.Content)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if err := s.files.Write(f.loc.Path, data); err != nil {
		return models.PromptMetadata{}, err
	}
	return metadataFor(p.Frontmatter, f.loc.Path), nil
}

// ScanAll decodes every prompts/<folder>/*.md file once and returns the
// entries sorted by file path. Files that cannot be read or decoded are
// skipped and logged. If two files carry the same id the first one by path wins.
func (s *Store) ScanAll() ([]models.PromptMetadata, error) {
	var decoded []models.PromptMetadata
	err := s.walk(func(rel string, data []byte) bool {
		fm, _, err := frontmatter.Decode(data)
		if err != nil {
			s.logger.Warn("scan: skip malformed", slog.String("path", rel), slog.String("error", err.Error()))
			return true
		}
		decoded = append(decoded, metadataFor(fm, rel))
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(decoded, func(i, j int) bool { return decoded[i].FilePath < decoded[j].FilePath })

	out := make([]models.PromptMetadata, 0, len(decoded))
	seen := make(map[string]string, len(decoded))
	for _, m := range decoded {
		if prev, dup := seen[m.ID]; dup {
			s.logger.Warn("scan: duplicate id", slog.String("id", m.ID),
				slog.String("path", m.FilePath), slog.String("kept", prev))
			continue
		}
		seen[m.ID] = m.FilePath
		out = append(out, m)
	}

	if s.hints != nil {
		if err := s.hints.Reset(seen); err != nil {
			s.logger.Warn("scan: reset path hints failed", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// ListFolders returns the folder directory names, sorted.
func (s *Store) ListFolders() ([]string, error) {
	entries, err := s.promptEntries()
	if err != nil {
		return nil, err
	}
	folders := []string{}
	for _, e := range entries {
		if e.IsDir {
			folders = append(folders, e.Name)
		}
	}
	return folders, nil
}

// CreateFolder creates a folder directory. Creating an existing folder is not an error.
func (s *Store) CreateFolder(name string) error {
	if err := validateFolder(name); err != nil {
		return err
	}
	return s.files.Mkdir(path.Join(PromptsDir, name))
}

type found struct {
	prompt models.Prompt
	loc    Location
	raw    []byte
}

// locate resolves id, trying the path hint first and falling back to a scan.
func (s *Store) locate(id string) (found, error) {
	if s.hints != nil {
		if p, ok := s.hints.Lookup(id); ok {
			if f, err := s.load(p); err == nil && f.prompt.ID == id {
				return f, nil
			}
			s.logger.Debug("locate: stale path hint", slog.String("id", id), slog.String("path", p))
		}
	}

	var hit found
	var ok bool
	err := s.walk(func(rel string, data []byte) bool {
		fm, body, err := frontmatter.Decode(data)
		if err != nil || fm.ID != id {
			return true
		}
		hit = found{
			prompt: models.Prompt{Frontmatter: fm, Content: body},
			loc:    locationOf(rel, data),
			raw:    data,
		}
		ok = true
		return false
	})
	if err != nil {
		return found{}, err
	}
	if !ok {
		return found{}, fmt.Errorf("%w: prompt %s", apperr.ErrNotFound, id)
	}
	s.remember(id, hit.loc.Path)
	return hit, nil
}

func (s *Store) load(rel string) (found, error) {
	data, err := s.files.Read(rel)
	if err != nil {
		return found{}, err
	}
	fm, body, err := frontmatter.Decode(data)
	if err != nil {
		return found{}, err
	}
	return found{
		prompt: models.Prompt{Frontmatter: fm, Content: body},
		loc:    locationOf(rel, data),
		raw:    data,
	}, nil
}

// walk visits every prompts/<folder>/*.md file in path order until fn
// returns false. Unreadable folders and files are logged and skipped.
func (s *Store) walk(fn func(rel string, data []byte) bool) error {
	folders, err := s.promptEntries()
	if err != nil {
		return err
	}
	for _, folder := range folders {
		if !folder.IsDir {
			continue
		}
		dir := path.Join(PromptsDir, folder.Name)
		files, err := s.files.Entries(dir)
		if err != nil {
			s.logger.Warn("walk: list folder failed", slog.String("path", dir), slog.String("error", err.Error()))
			continue
		}
		for _, file := range files {
			if file.IsDir || !strings.HasSuffix(file.Name, fileExt) {
				continue
			}
			rel := path.Join(dir, file.Name)
			data, err := s.files.Read(rel)
			if err != nil {
				s.logger.Warn("walk: read failed", slog.String("path", rel), slog.String("error", err.Error()))
				continue
			}
			if !fn(rel, data) {
				return nil
			}
		}
	}
	return nil
}

// promptEntries lists prompts/; a missing directory is an empty store.
func (s *Store) promptEntries() ([]storage.Entry, error) {
	entries, err := s.files.Entries(PromptsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// freePath returns dir/<stem>.md, or the first dir/<stem>-N.md that is not taken.
func (s *Store) freePath(dir, stem string) (string, error) {
	const maxAttempts = 1000
	for n := 1; n <= maxAttempts; n++ {
		name := stem + fileExt
		if n > 1 {
			name = fmt.Sprintf("%s-%d%s", stem, n, fileExt)
		}
		rel := path.Join(dir, name)
		taken, err := s.files.Exists(rel)
		if err != nil {
			return "", err
		}
		if !taken {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: no free file name for %q in %s", apperr.ErrIO, stem, dir)
}

func (s *Store) remember(id, rel string) {
	if s.hints == nil {
		return
	}
	if err := s.hints.Remember(id, rel); err != nil {
		s.logger.Warn("path hint: remember failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (s *Store) forget(id string) {
	if s.hints == nil {
		return
	}
	if err := s.hints.Forget(id); err != nil {
		s.logger.Warn("path hint: forget failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Metadata projects fm found at l onto an index entry.
func (l Location) Metadata(fm models.Frontmatter) models.PromptMetadata {
	return metadataFor(fm, l.Path)
}

func locationOf(rel string, data []byte) Location {
	return Location{
		Path:     rel,
		Folder:   path.Base(path.Dir(rel)),
		Checksum: checksum.Sum(data),
	}
}

func metadataFor(fm models.Frontmatter, rel string) models.PromptMetadata {
	m := models.PromptMetadata{
		ID:          fm.ID,
		Name:        fm.Name,
		Description: fm.Description,
		Folder:      path.Base(path.Dir(rel)),
		Tags:        cloneTags(fm.Tags),
		FilePath:    rel,
		UseCount:    fm.UseCount,
		CreatedAt:   fm.Created,
	}
	if fm.LastUsedAt != nil {
		t := *fm.LastUsedAt
		m.LastUsedAt = &t
	}
	return m
}

func cloneTags(tags []string) []string {
	return append([]string{}, tags...)
}
