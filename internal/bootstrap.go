package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/promptpad/internal/docstore"
	"github.com/starford/promptpad/internal/focus"
	"github.com/starford/promptpad/internal/index"
	"github.com/starford/promptpad/internal/locator"
	"github.com/starford/promptpad/internal/paste"
	"github.com/starford/promptpad/internal/promptservice"
	"github.com/starford/promptpad/internal/search"
	"github.com/starford/promptpad/internal/settings"
	"github.com/starford/promptpad/internal/storage"
)

// components is the wired storage stack shared by every command.
type components struct {
	root     string
	store    *docstore.Store
	cache    *index.Cache
	settings *settings.Store
	searcher *search.Searcher
	hints    *locator.DB
}

func (c *components) Close() {
	if c.hints != nil {
		_ = c.hints.Close()
	}
}

// service builds the prompt service on top of the components.
func (c *components) service(events promptservice.Events, logger *slog.Logger) *promptservice.Service {
	return promptservice.New(promptservice.Deps{
		Store:    c.store,
		Index:    c.cache,
		Settings: c.settings,
		Searcher: c.searcher,
		Paster:   paste.New(paste.System{}, focus.Unsupported{}, logger),
		Events:   events,
		Logger:   logger,
	})
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOut
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// openRoot ensures dir exists and returns a provider rooted there.
func openRoot(dir string) (*storage.FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return storage.NewFS(dir)
}

// wire resolves the storage root, honours the storage_location setting,
// opens the optional path locator and loads the index. The index is rebuilt
// from disk so edits made while the app was stopped are picked up and a
// corrupt snapshot is replaced.
func wire(cfg *Config, logger *slog.Logger) (*components, error) {
	base, err := cfg.Storage.ResolveRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	baseFS, err := openRoot(base)
	if err != nil {
		return nil, err
	}

	prefs := settings.New(baseFS)
	s, err := prefs.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	root, files := base, baseFS
	if s.StorageLocation != "" {
		loc, err := filepath.Abs(s.StorageLocation)
		if err != nil {
			return nil, fmt.Errorf("resolve storage_location: %w", err)
		}
		if loc != base {
			if files, err = openRoot(loc); err != nil {
				return nil, err
			}
			root = loc
			logger.Info("storage relocated by settings", slog.String("root", root))
		}
	}

	c := &components{root: root, settings: prefs}

	var opts []docstore.Option
	if cfg.Storage.Locator.Mode == LocatorModeSQLite {
		dsn := cfg.Storage.Locator.DSN(root)
		c.hints, err = locator.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open locator: %w", err)
		}
		opts = append(opts, docstore.WithPathHints(c.hints))
		logger.Info("path locator enabled", slog.String("path", dsn))
	}

	c.store = docstore.New(files, logger, opts...)
	if err := c.store.Init(); err != nil {
		c.Close()
		return nil, fmt.Errorf("init document store: %w", err)
	}

	c.cache = index.NewCache(files, c.store, logger)
	if err := c.cache.Load(); err != nil {
		logger.Warn("index: snapshot unreadable, rebuilding", slog.String("error", err.Error()))
	}
	ix, err := c.cache.Rebuild()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	logger.Info("index ready",
		slog.String("root", root),
		slog.Int("prompts", len(ix.Prompts)),
		slog.Int("folders", len(ix.Folders)))

	c.searcher = search.New(c.cache, c.store, cfg.Search.Workers, logger)
	return c, nil
}
