package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptpad/internal/index"
	"github.com/starford/promptpad/internal/search"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Locator modes.
const (
	LocatorModeScan   = "scan"
	LocatorModeSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Watch   WatchConfig       `yaml:"watch"`
	Search  SearchConfig      `yaml:"search"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig locates the storage root and the optional path locator.
// An empty Root means <home>/PromptPad.
type StorageConfig struct {
	Root    string        `yaml:"root"`
	Locator LocatorConfig `yaml:"locator"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return c.Locator.Validate()
}

// ResolveRoot returns the absolute storage root.
func (c *StorageConfig) ResolveRoot() (string, error) {
	root := c.Root
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if home == "" {
			return "", errors.New("resolve home directory: empty")
		}
		root = filepath.Join(home, "PromptPad")
	}
	return filepath.Abs(root)
}

// LocatorConfig selects how documents are found by id.
//
// Mode "scan" (default) walks prompts/ on every lookup. Mode "sqlite" keeps
// an id to path table at Path (default <root>/locations.db).
type LocatorConfig struct {
	Mode string `yaml:"mode"`
	Path string `yaml:"path"`
}

// Validate validates the locator configuration.
func (c *LocatorConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = LocatorModeScan
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(LocatorModeScan, LocatorModeSQLite)),
	)
}

// DSN returns the sqlite file for the given storage root.
func (c *LocatorConfig) DSN(root string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(root, "locations.db")
}

// WatchConfig controls the prompts/ file watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// SearchConfig controls content search.
type SearchConfig struct {
	Workers int `yaml:"workers"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8787,
			},
		},
		Storage: StorageConfig{
			Locator: LocatorConfig{Mode: LocatorModeScan},
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: index.DefaultDebounce,
		},
		Search: SearchConfig{
			Workers: search.DefaultWorkers,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
