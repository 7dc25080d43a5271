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

	"github.com/starford/promptpad/internal/models"
)

// DefaultDebounce is used when Watch is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// RebuildCallback is called after each watcher-driven rebuild with the new snapshot.
type RebuildCallback func(ix models.PromptIndex)

// Watch starts an fsnotify watcher on dir (the prompts/ directory) and its
// folder directories, and rebuilds c after external changes until ctx is
// cancelled.
//
// Any create, write, remove or rename of a .md file schedules a rebuild;
// bursts within debounce collapse into one. New folder directories are added
// to the watch list and also schedule a rebuild so they show up as folders.
func Watch(ctx context.Context, c *Cache, dir string, debounce time.Duration, logger *slog.Logger, cb RebuildCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.Duration("debounce", debounce))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			ix, err := c.Rebuild()
			if err != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: rebuilt", slog.Int("prompts", len(ix.Prompts)))
			if cb != nil {
				cb(ix)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
