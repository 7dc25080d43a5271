// Package paste puts prompt text on the clipboard and pastes it into the
// previously focused window.
package paste

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/focus"
)

// DefaultRestoreDelay is how long the pasted text stays on the clipboard
// before the previous contents are put back.
const DefaultRestoreDelay = 500 * time.Millisecond

// Clipboard reads and writes plain text.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// System is the host clipboard.
type System struct{}

// Read returns the clipboard text.
func (System) Read() (string, error) {
	s, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: clipboard read: %w", apperr.ErrIO, err)
	}
	return s, nil
}

// Write replaces the clipboard text.
func (System) Write(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard utility available", apperr.ErrUnsupported)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: clipboard write: %w", apperr.ErrIO, err)
	}
	return nil
}

// Option configures a Paster.
type Option func(*Paster)

// WithRestoreDelay overrides DefaultRestoreDelay.
func WithRestoreDelay(d time.Duration) Option {
	return func(p *Paster) { p.restoreDelay = d }
}

// Paster runs the paste flow.
type Paster struct {
	clip         Clipboard
	auto         focus.Automation
	logger       *slog.Logger
	restoreDelay time.Duration
}

// New creates a Paster.
func New(clip Clipboard, auto focus.Automation, logger *slog.Logger, opts ...Option) *Paster {
	p := &Paster{clip: clip, auto: auto, logger: logger, restoreDelay: DefaultRestoreDelay}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result reports how far the paste flow got.
type Result struct {
	// Copied is true once the text is on the clipboard.
	Copied bool `json:"copied"`
	// Injected is true when the text was pasted into the target window.
	Injected bool `json:"injected"`
}

// Paste writes text to the clipboard, then restores target and injects a paste
// keystroke. With preserve set, the previous clipboard text is saved first
// and written back after the restore delay.
//
// When injection is unsupported the text is left on the clipboard and the
// result reports Copied without Injected; that is not an error.
func (p *Paster) Paste(text string, target *focus.Target, preserve bool) (Result, error) {
	var saved string
	var haveSaved bool
	if preserve {
		s, err := p.clip.Read()
		if err != nil {
			p.logger.Warn("paste: save clipboard failed", slog.String("error", err.Error()))
		} else {
			saved, haveSaved = s, true
		}
	}

	if err := p.clip.Write(text); err != nil {
		return Result{}, err
	}
	res := Result{Copied: true}

	if target == nil {
		p.logger.Debug("paste: no captured target, copy only")
		return res, nil
	}
	if err := p.auto.RestoreAndInject(*target); err != nil {
		if errors.Is(err, apperr.ErrUnsupported) {
			p.logger.Info("paste: injection unavailable, copy only", slog.String("error", err.Error()))
			return res, nil
		}
		return res, err
	}
	res.Injected = true

	if haveSaved {
		time.Sleep(p.restoreDelay)
		if err := p.clip.Write(saved); err != nil {
			p.logger.Warn("paste: restore clipboard failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}
