package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HotkeyConfig binds the toggle action to a key chord.
type HotkeyConfig struct {
	// Toggle is an X11 key chord string, e.g. "Mod4-b". Empty disables
	// the hotkey.
	Toggle string `yaml:"toggle,omitempty"`
}

// AutoCollapseConfig controls re-hiding the hidden section after an
// expand.
type AutoCollapseConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// DelaySeconds is how long the section stays expanded before
	// collapsing on its own.
	DelaySeconds int `yaml:"delay_seconds,omitempty"`
}

// TimingConfig overrides the built-in pacing constants. Zero values keep
// the defaults; these knobs exist for unusual window managers whose drag
// recognition or reflow is slower than stock.
type TimingConfig struct {
	GestureDelayMS   int `yaml:"gesture_delay_ms,omitempty"`
	SettleDelayMS    int `yaml:"settle_delay_ms,omitempty"`
	ToggleDebounceMS int `yaml:"toggle_debounce_ms,omitempty"`
}

// LoggingConfig configures daemon logging.
type LoggingConfig struct {
	// Level controls verbosity: debug, info, warn, error.
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/traykeep/traykeep.log).
	// Empty with Stderr true logs to stderr only.
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10).
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3).
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config is the effective daemon configuration.
type Config struct {
	Hotkeys      HotkeyConfig       `yaml:"hotkeys,omitempty"`
	AutoCollapse AutoCollapseConfig `yaml:"auto_collapse,omitempty"`
	// AlwaysHiddenSection enables the third, toggle-proof section.
	AlwaysHiddenSection *bool         `yaml:"always_hidden_section,omitempty"`
	Timing              TimingConfig  `yaml:"timing,omitempty"`
	Logging             LoggingConfig `yaml:"logging,omitempty"`
}

const (
	DefaultToggleHotkey         = "Mod4-b"
	DefaultAutoCollapseDelaySec = 10
	DefaultLogMaxSizeMB         = 10
	DefaultLogMaxFiles          = 3
)

// GetEnabled returns the effective value, defaulting to false.
func (a *AutoCollapseConfig) GetEnabled() bool {
	if a == nil || a.Enabled == nil {
		return false
	}
	return *a.Enabled
}

// Delay returns the effective auto-collapse delay.
func (a *AutoCollapseConfig) Delay() time.Duration {
	if a == nil || a.DelaySeconds <= 0 {
		return DefaultAutoCollapseDelaySec * time.Second
	}
	return time.Duration(a.DelaySeconds) * time.Second
}

// GetAlwaysHiddenSection returns the effective value, defaulting to false.
func (c *Config) GetAlwaysHiddenSection() bool {
	if c == nil || c.AlwaysHiddenSection == nil {
		return false
	}
	return *c.AlwaysHiddenSection
}

// GestureDelay returns the configured drag pacing, or zero when the
// built-in default should apply.
func (t *TimingConfig) GestureDelay() time.Duration {
	if t == nil || t.GestureDelayMS <= 0 {
		return 0
	}
	return time.Duration(t.GestureDelayMS) * time.Millisecond
}

// SettleDelay returns the configured post-move settle pause, or zero for
// the default.
func (t *TimingConfig) SettleDelay() time.Duration {
	if t == nil || t.SettleDelayMS <= 0 {
		return 0
	}
	return time.Duration(t.SettleDelayMS) * time.Millisecond
}

// ToggleDebounce returns the configured debounce window, or zero for the
// default.
func (t *TimingConfig) ToggleDebounce() time.Duration {
	if t == nil || t.ToggleDebounceMS <= 0 {
		return 0
	}
	return time.Duration(t.ToggleDebounceMS) * time.Millisecond
}

// LogFile returns the effective log file path.
func (l *LoggingConfig) LogFile() (string, error) {
	if l != nil && l.File != "" {
		return l.File, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "traykeep", "traykeep.log"), nil
}

// ValidationError reports an invalid config value with its YAML path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var validLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the config for out-of-range values.
func (c *Config) Validate() error {
	if c.AutoCollapse.DelaySeconds < 0 {
		return &ValidationError{Path: "auto_collapse.delay_seconds", Message: "must not be negative"}
	}
	if c.Timing.GestureDelayMS < 0 {
		return &ValidationError{Path: "timing.gesture_delay_ms", Message: "must not be negative"}
	}
	if c.Timing.SettleDelayMS < 0 {
		return &ValidationError{Path: "timing.settle_delay_ms", Message: "must not be negative"}
	}
	if c.Timing.ToggleDebounceMS < 0 {
		return &ValidationError{Path: "timing.toggle_debounce_ms", Message: "must not be negative"}
	}
	if !validLogLevels[c.Logging.Level] {
		return &ValidationError{Path: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Message: "must not be negative"}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Message: "must not be negative"}
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Hotkeys: HotkeyConfig{Toggle: DefaultToggleHotkey},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: DefaultLogMaxSizeMB,
			MaxFiles:  DefaultLogMaxFiles,
		},
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "traykeep", "config.yaml"), nil
}

// Load reads the config from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the config at path. A missing file
// yields the defaults; a malformed or invalid file is an error, never
// silently replaced.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	cfg := Default()
	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decodeStrictYAML rejects unknown fields so typos surface as errors
// instead of silently-ignored settings.
func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
