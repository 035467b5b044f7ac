package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultToggleHotkey, cfg.Hotkeys.Toggle)
	assert.False(t, cfg.AutoCollapse.GetEnabled())
	assert.False(t, cfg.GetAlwaysHiddenSection())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
hotkeys:
  toggle: "Mod4-Shift-h"
auto_collapse:
  enabled: true
  delay_seconds: 5
always_hidden_section: true
timing:
  gesture_delay_ms: 60
logging:
  level: debug
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "Mod4-Shift-h", cfg.Hotkeys.Toggle)
	assert.True(t, cfg.AutoCollapse.GetEnabled())
	assert.Equal(t, 5*time.Second, cfg.AutoCollapse.Delay())
	assert.True(t, cfg.GetAlwaysHiddenSection())
	assert.Equal(t, 60*time.Millisecond, cfg.Timing.GestureDelay())
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched settings keep their defaults.
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
}

func TestLoadFromPath_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "hotkys:\n  toggle: x\n")

	_, err := LoadFromPath(path)
	assert.Error(t, err, "typoed keys must fail loudly, not be ignored")
}

func TestLoadFromPath_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "hotkeys: [unbalanced\n")

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{
			name:   "negative auto-collapse delay",
			mutate: func(c *Config) { c.AutoCollapse.DelaySeconds = -1 },
			path:   "auto_collapse.delay_seconds",
		},
		{
			name:   "negative gesture delay",
			mutate: func(c *Config) { c.Timing.GestureDelayMS = -5 },
			path:   "timing.gesture_delay_ms",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			path:   "logging.level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
		})
	}
}

func TestTimingConfig_ZeroMeansDefault(t *testing.T) {
	var timing TimingConfig
	assert.Zero(t, timing.GestureDelay())
	assert.Zero(t, timing.SettleDelay())
	assert.Zero(t, timing.ToggleDebounce())
}
