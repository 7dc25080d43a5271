package promptservice

import (
	"context"

	"github.com/starford/promptpad/internal/focus"
	"github.com/starford/promptpad/internal/paste"
)

// PasteResult reports the outcome of Paste.
type PasteResult struct {
	paste.Result
	UseCount int `json:"use_count"`
}

// CaptureTarget remembers the currently focused window so a later Paste can
// return to it. It is called when the launcher is shown.
func (s *Service) CaptureTarget(_ context.Context) (focus.Target, error) {
	t, err := s.focus.CaptureActiveTarget()
	if err != nil {
		s.setTarget(nil)
		return focus.Target{}, err
	}
	s.setTarget(&t)
	return t, nil
}

// Paste copies the prompt body to the clipboard, pastes it into the captured
// target when the host supports it, and records a use.
func (s *Service) Paste(ctx context.Context, id string) (PasteResult, error) {
	body, err := s.store.Content(id)
	if err != nil {
		return PasteResult{}, err
	}
	prefs, err := s.settings.Get()
	if err != nil {
		return PasteResult{}, err
	}

	s.targetMu.Lock()
	target := s.target
	s.target = nil
	s.targetMu.Unlock()

	res, err := s.paster.Paste(body, target, prefs.PreserveClipboard)
	if err != nil {
		return PasteResult{Result: res}, err
	}
	m, err := s.RecordUsage(ctx, id)
	if err != nil {
		return PasteResult{Result: res}, err
	}
	return PasteResult{Result: res, UseCount: m.UseCount}, nil
}

func (s *Service) setTarget(t *focus.Target) {
	s.targetMu.Lock()
	s.target = t
	s.targetMu.Unlock()
}
