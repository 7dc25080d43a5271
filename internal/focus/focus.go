// Package focus abstracts the host's "remember the active window, then
// restore it and send a paste keystroke" capability.
package focus

import (
	"fmt"
	"runtime"

	"github.com/starford/promptpad/internal/apperr"
)

// Target is an opaque handle to the window that was active when it was captured.
type Target struct {
	// ID identifies the window or application in a host-specific way.
	ID string `json:"id"`
}

// Automation captures and restores the active target.
type Automation interface {
	// CaptureActiveTarget records the currently focused window.
	CaptureActiveTarget() (Target, error)
	// RestoreAndInject focuses t again and sends the platform paste shortcut.
	RestoreAndInject(t Target) error
}

// Unsupported is the Automation used when the host has no focus automation.
// Both operations fail with apperr.ErrUnsupported.
type Unsupported struct{}

// CaptureActiveTarget always fails.
func (Unsupported) CaptureActiveTarget() (Target, error) {
	return Target{}, fmt.Errorf("%w: focus capture on %s", apperr.ErrUnsupported, runtime.GOOS)
}

// RestoreAndInject always fails.
func (Unsupported) RestoreAndInject(Target) error {
	return fmt.Errorf("%w: paste injection on %s", apperr.ErrUnsupported, runtime.GOOS)
}
