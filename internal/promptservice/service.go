// Package promptservice is the single entry point the dispatch layers (HTTP,
// MCP, CLI) use. Every mutation writes the prompt files first and then
// reflects the change in the index cache.
//
// Mutations run one at a time so the index applies them in the same order as
// the files. The two steps are not transactional. If the index update fails
// after the document write succeeded, the error is returned and the index
// stays behind the files until the next RebuildIndex.
package promptservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/promptpad/internal/docstore"
	"github.com/starford/promptpad/internal/focus"
	"github.com/starford/promptpad/internal/index"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/paste"
	"github.com/starford/promptpad/internal/search"
	"github.com/starford/promptpad/internal/settings"
)

// Event kinds passed to Events.PublishPromptEvent.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventUsed    = "used"
	EventRebuilt = "rebuilt"
)

// Events receives change notifications. The SSE broker implements it.
type Events interface {
	PublishPromptEvent(kind, id string)
}

type noEvents struct{}

func (noEvents) PublishPromptEvent(string, string) {}

// PromptDetail is a prompt with its body and the checksum of its file, for
// use as an If-Match value.
type PromptDetail struct {
	models.PromptMetadata
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Store    *docstore.Store
	Index    *index.Cache
	Settings *settings.Store
	Searcher *search.Searcher
	Paster   *paste.Paster
	Focus    focus.Automation
	Events   Events
	Logger   *slog.Logger
}

// Service coordinates the document store, the index cache and the settings store.
type Service struct {
	store    *docstore.Store
	index    *index.Cache
	settings *settings.Store
	searcher *search.Searcher
	paster   *paste.Paster
	focus    focus.Automation
	events   Events
	logger   *slog.Logger

	// writeMu is held across the document write and the index update.
	writeMu sync.Mutex

	targetMu sync.Mutex
	target   *focus.Target
}

// New creates a Service. Events and Focus may be nil.
func New(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		index:    d.Index,
		settings: d.Settings,
		searcher: d.Searcher,
		paster:   d.Paster,
		focus:    d.Focus,
		events:   d.Events,
		logger:   d.Logger,
	}
	if s.events == nil {
		s.events = noEvents{}
	}
	if s.focus == nil {
		s.focus = focus.Unsupported{}
	}
	return s
}

// CreatePrompt writes a new prompt and indexes it.
func (s *Service) CreatePrompt(_ context.Context, in models.CreateInput) (models.PromptMetadata, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.store.Create(in)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if err := s.index.Upsert(m); err != nil {
		return models.PromptMetadata{}, s.indexLag("create", m.ID, err)
	}
	s.events.PublishPromptEvent(EventCreated, m.ID)
	return m, nil
}

// GetPrompt reads a prompt from its file.
func (s *Service) GetPrompt(_ context.Context, id string) (PromptDetail, error) {
	p, loc, err := s.store.Read(id)
	if err != nil {
		return PromptDetail{}, err
	}
	return PromptDetail{
		PromptMetadata: loc.Metadata(p.Frontmatter),
		Content:        p.Content,
		Checksum:       loc.Checksum,
	}, nil
}

// PromptContent returns only the body of a prompt.
func (s *Service) PromptContent(_ context.Context, id string) (string, error) {
	return s.store.Content(id)
}

// UpdatePrompt applies a partial update and re-indexes the prompt.
func (s *Service) UpdatePrompt(_ context.Context, id string, in models.UpdateInput) (models.PromptMetadata, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.store.Update(id, in)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if err := s.index.Upsert(m); err != nil {
		return models.PromptMetadata{}, s.indexLag("update", id, err)
	}
	s.events.PublishPromptEvent(EventUpdated, id)
	return m, nil
}

// DeletePrompt removes a prompt file and its index entry.
func (s *Service) DeletePrompt(_ context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.index.Remove(id); err != nil {
		return s.indexLag("delete", id, err)
	}
	s.events.PublishPromptEvent(EventDeleted, id)
	return nil
}

// RecordUsage bumps the use count in the file, then in the index with the
// same timestamp.
func (s *Service) RecordUsage(_ context.Context, id string) (models.PromptMetadata, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.store.RecordUsage(id)
	if err != nil {
		return models.PromptMetadata{}, err
	}
	if err := s.index.BumpUsage(id, *m.LastUsedAt); err != nil {
		return models.PromptMetadata{}, s.indexLag("usage", id, err)
	}
	s.events.PublishPromptEvent(EventUsed, id)
	return m, nil
}

// ListFolders enumerates the folder directories.
func (s *Service) ListFolders(_ context.Context) ([]string, error) {
	return s.store.ListFolders()
}

// CreateFolder creates a folder directory and records it in the index.
func (s *Service) CreateFolder(_ context.Context, name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.CreateFolder(name); err != nil {
		return err
	}
	if err := s.index.AddFolder(name); err != nil {
		return s.indexLag("create folder", name, err)
	}
	return nil
}

// GetIndex returns the cached index snapshot.
func (s *Service) GetIndex(_ context.Context) (models.PromptIndex, error) {
	return s.index.Get()
}

// RebuildIndex re-derives the index from the prompt files.
func (s *Service) RebuildIndex(_ context.Context) (models.PromptIndex, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ix, err := s.index.Rebuild()
	if err != nil {
		return models.PromptIndex{}, err
	}
	s.events.PublishPromptEvent(EventRebuilt, "")
	return ix, nil
}

// GetSettings returns the settings record.
func (s *Service) GetSettings(_ context.Context) (models.Settings, error) {
	return s.settings.Get()
}

// UpdateSettings replaces the settings record.
func (s *Service) UpdateSettings(_ context.Context, next models.Settings) (models.Settings, error) {
	return s.settings.Update(next)
}

// SearchContent returns the prompts whose body contains query.
func (s *Service) SearchContent(ctx context.Context, query string) ([]models.PromptMetadata, error) {
	return s.searcher.SearchContent(ctx, query)
}

// ListPrompts filters the index by folder, tag and name/description text.
func (s *Service) ListPrompts(_ context.Context, f search.Filter) ([]models.PromptMetadata, error) {
	return s.searcher.ListPrompts(f)
}

func (s *Service) indexLag(op, id string, err error) error {
	s.logger.Error("index update failed after document write",
		slog.String("op", op), slog.String("id", id), slog.String("error", err.Error()))
	return fmt.Errorf("%s %s: index not updated: %w", op, id, err)
}
