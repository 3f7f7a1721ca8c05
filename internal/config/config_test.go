package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewManager_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desksnap", "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.GetConfigPath())
	assert.Equal(t, filepath.Dir(path), m.GetConfigDir())
	assert.FileExists(t, path)

	cfg := m.Get()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 8737, cfg.ServerPort)
	assert.Equal(t, 5*time.Second, cfg.SettleDelay)
	assert.NotEmpty(t, cfg.StorePath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "5s", raw["settle_delay"])
}

func TestNewManager_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nsettle_delay: 1500ms\nstore_path: /tmp/snaps.json\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, "/tmp/snaps.json", cfg.StorePath)
	assert.Equal(t, 8737, cfg.ServerPort, "missing keys keep defaults")
}

func TestNewManager_RejectsInvalidFile(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "log_level: [",
		"bad level":       "log_level: loud\n",
		"zero delay":      "settle_delay: 0s\n",
		"delay too short": "settle_delay: 5ms\n",
		"port too large":  "server_port: 70000\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := NewManager(path)
			assert.Error(t, err)
		})
	}
}

func TestManager_SetAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.Set(KeySettleDelay, "8s"))
	require.NoError(t, m.Set(KeyServerPort, "9090"))
	require.NoError(t, m.Set(KeyLogPretty, "false"))
	require.NoError(t, m.Save())

	assert.Equal(t, 8*time.Second, m.Get().SettleDelay)

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 8*time.Second, cfg.SettleDelay)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.False(t, cfg.LogPretty)
}

func TestManager_SetRejects(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.ErrorIs(t, m.Set("virtual_display.width", "1"), ErrUnknownKey)
	assert.Error(t, m.Set(KeySettleDelay, "soon"))
	assert.Error(t, m.Set(KeySettleDelay, "-1s"))
	assert.Error(t, m.Set(KeySettleDelay, "50ms"))
	assert.Error(t, m.Set(KeyServerPort, "0"))
	assert.Error(t, m.Set(KeyServerPort, "http"))
	assert.Error(t, m.Set(KeyLogLevel, "verbose"))
	assert.Error(t, m.Set(KeyLogPretty, "maybe"))

	assert.Equal(t, 5*time.Second, m.Get().SettleDelay, "rejected values are not applied")
}

func TestManager_EnvOverride(t *testing.T) {
	t.Setenv("DESKSNAP_SETTLE_DELAY", "750ms")
	t.Setenv("DESKSNAP_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 750*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, "warn", cfg.LogLevel)

	// Overrides are not persisted.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "settle_delay: 5s")
}

func TestManager_BindFlags(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.Duration("settle-delay", 0, "")
	require.NoError(t, m.BindFlags(fs, map[string]string{
		KeyServerPort:  "port",
		KeySettleDelay: "settle-delay",
	}))

	// Unset flags leave the file values in place.
	assert.Equal(t, 8737, m.Get().ServerPort)

	require.NoError(t, fs.Parse([]string{"--port", "9999", "--settle-delay", "2s"}))
	cfg := m.Get()
	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)

	assert.Error(t, m.BindFlags(fs, map[string]string{KeyLogLevel: "log-level"}))
}

func TestManager_GetViper(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	v := m.GetViper()
	assert.True(t, v.IsSet(KeyServerPort))
	assert.Equal(t, 8737, v.GetInt(KeyServerPort))
}

func TestParseSettleDelay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5000", 5 * time.Second},
		{"750", 750 * time.Millisecond},
		{" 1500 ", 1500 * time.Millisecond},
		{"8s", 8 * time.Second},
		{"1m30s", 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSettleDelay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSettleDelay("soon")
	assert.Error(t, err)
}

func TestManager_BareIntegerDelayIsMilliseconds(t *testing.T) {
	t.Setenv("DESKSNAP_SETTLE_DELAY", "5000")

	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 5*time.Second, cfg.SettleDelay)
	assert.NoError(t, cfg.Validate())

	// Set agrees with the env path.
	require.NoError(t, m.Set(KeySettleDelay, "2500"))
	assert.Equal(t, 2500*time.Millisecond, m.file.SettleDelay)
}

func TestManager_EnvDelayBelowMinimumFailsValidation(t *testing.T) {
	t.Setenv("DESKSNAP_SETTLE_DELAY", "5us")

	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 5*time.Microsecond, cfg.SettleDelay)
	assert.Error(t, cfg.Validate())
}

func TestManager_UnparsableEnvDelayFailsValidation(t *testing.T) {
	t.Setenv("DESKSNAP_SETTLE_DELAY", "later")

	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Zero(t, m.Get().SettleDelay)
	assert.Error(t, m.Get().Validate())
}
