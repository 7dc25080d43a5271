package models

import (
	"runtime"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Themes accepted by the launcher UI.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings is the process-wide user configuration persisted as settings.json.
type Settings struct {
	Hotkey            string `json:"hotkey"`
	Theme             string `json:"theme"`
	StorageLocation   string `json:"storage_location,omitempty"`
	LaunchAtStartup   bool   `json:"launch_at_startup"`
	PreserveClipboard bool   `json:"preserve_clipboard"`
}

// DefaultSettings returns the settings used for any field absent on disk.
func DefaultSettings() Settings {
	hotkey := "Ctrl+Shift+Space"
	if runtime.GOOS == "darwin" {
		hotkey = "Cmd+Shift+Space"
	}
	return Settings{
		Hotkey: hotkey,
		Theme:  ThemeSystem,
	}
}

// Validate validates the settings record.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Hotkey, validation.Required, validation.Length(1, 64)),
		validation.Field(&s.Theme, validation.Required, validation.In(ThemeLight, ThemeDark, ThemeSystem)),
	)
}
