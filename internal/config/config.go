package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

// Configuration keys, shared by the YAML file, DESKSNAP_* env vars and flags.
const (
	KeyLogLevel    = "log_level"
	KeyLogPretty   = "log_pretty"
	KeyServerPort  = "server_port"
	KeySettleDelay = "settle_delay"
	KeyStorePath   = "store_path"
)

// EnvPrefix prefixes environment overrides, e.g. DESKSNAP_SETTLE_DELAY=8s.
const EnvPrefix = "DESKSNAP"

// ErrUnknownKey is returned by Set for keys outside the schema.
var ErrUnknownKey = errors.New("unknown configuration key")

// MinSettleDelay is the shortest settle delay accepted. Anything shorter
// re-enumerates before a launched application can show a window.
const MinSettleDelay = 100 * time.Millisecond

// ParseSettleDelay parses a settle delay. A bare integer is milliseconds, as
// in DESKSNAP_SETTLE_DELAY=5000; anything else must be a Go duration.
func ParseSettleDelay(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s (e.g. 5s, 1500ms, or 5000 for milliseconds)", value)
	}
	return d, nil
}

// Config represents the application configuration
type Config struct {
	LogLevel    string        `json:"log_level" yaml:"log_level"`
	LogPretty   bool          `json:"log_pretty" yaml:"log_pretty"`
	ServerPort  int           `json:"server_port" yaml:"server_port"`
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`
	StorePath   string        `json:"store_path" yaml:"store_path"`
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d (use 1-65535)", c.ServerPort)
	}
	if c.SettleDelay < MinSettleDelay {
		return fmt.Errorf("invalid settle delay: %s (minimum %s)", c.SettleDelay, MinSettleDelay)
	}
	if c.StorePath == "" {
		return errors.New("store path must not be empty")
	}
	return nil
}

// Defaults returns the default configuration.
func Defaults() *Config {
	storePath, err := snapshot.DefaultStorePath()
	if err != nil {
		storePath = snapshot.DefaultStoreFile
	}
	return &Config{
		LogLevel:    "info",
		LogPretty:   true,
		ServerPort:  8737,
		SettleDelay: 5 * time.Second,
		StorePath:   storePath,
	}
}

// DefaultConfigPath returns <UserConfigDir>/desksnap/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "desksnap", "config.yaml"), nil
}

// Manager handles configuration. The file holds the persisted values; env
// vars and bound flags override them for the running process only.
type Manager struct {
	configPath string
	file       *Config
	v          *viper.Viper
	mu         sync.RWMutex
}

// NewManager loads configFile (or the default path), creating it with
// defaults if it does not exist.
func NewManager(configFile string) (*Manager, error) {
	log := logger.WithComponent("config")

	path := configFile
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		configPath: path,
		v:          viper.New(),
	}
	m.v.SetEnvPrefix(EnvPrefix)
	m.v.AutomaticEnv()

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.file = Defaults()
		m.applyDefaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	log.Debug().
		Str("path", m.configPath).
		Str("log_level", m.file.LogLevel).
		Dur("settle_delay", m.file.SettleDelay).
		Msg("Config loaded")
	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.file = cfg
	m.mu.Unlock()
	m.applyDefaults()
	return nil
}

// applyDefaults seeds viper with the file values so env vars and flags sit
// above them.
func (m *Manager) applyDefaults() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.v.SetDefault(KeyLogLevel, m.file.LogLevel)
	m.v.SetDefault(KeyLogPretty, m.file.LogPretty)
	m.v.SetDefault(KeyServerPort, m.file.ServerPort)
	m.v.SetDefault(KeySettleDelay, m.file.SettleDelay)
	m.v.SetDefault(KeyStorePath, m.file.StorePath)
}

// BindFlags lets flags override keys. flagNames maps configuration keys to
// flag names in fs; unknown flags are an error.
func (m *Manager) BindFlags(fs *pflag.FlagSet, flagNames map[string]string) error {
	for key, name := range flagNames {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s not defined", name)
		}
		if err := m.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// Get returns the effective configuration: file values overridden by env vars
// and bound flags.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Config{
		LogLevel:    m.v.GetString(KeyLogLevel),
		LogPretty:   m.v.GetBool(KeyLogPretty),
		ServerPort:  m.v.GetInt(KeyServerPort),
		SettleDelay: m.settleDelay(),
		StorePath:   m.v.GetString(KeyStorePath),
	}
}

// settleDelay reads the effective settle delay. Env vars and flags arrive as
// strings and go through ParseSettleDelay like Set does; an unparsable value
// yields 0 so Validate rejects it.
func (m *Manager) settleDelay() time.Duration {
	switch v := m.v.Get(KeySettleDelay).(type) {
	case time.Duration:
		return v
	case string:
		d, err := ParseSettleDelay(v)
		if err != nil {
			logger.WithComponent("config").Warn().Err(err).Msg("Ignoring settle delay")
			return 0
		}
		return d
	default:
		return m.v.GetDuration(KeySettleDelay)
	}
}

// Set parses value for key, validates it and updates the file values. Call
// Save to persist.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *m.file
	var parsed interface{}
	switch key {
	case KeyLogLevel:
		next.LogLevel = value
		parsed = value
	case KeyLogPretty:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		next.LogPretty = b
		parsed = b
	case KeyServerPort:
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port number: %s", value)
		}
		next.ServerPort = port
		parsed = port
	case KeySettleDelay:
		d, err := ParseSettleDelay(value)
		if err != nil {
			return err
		}
		next.SettleDelay = d
		parsed = d
	case KeyStorePath:
		next.StorePath = value
		parsed = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	m.file = &next
	m.v.Set(key, parsed)
	return nil
}

// Save writes the file values to disk.
func (m *Manager) Save() error {
	log := logger.WithComponent("config")

	m.mu.RLock()
	cfg := *m.file
	m.mu.RUnlock()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	log.Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// GetViper exposes the underlying viper instance for key lookups.
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
