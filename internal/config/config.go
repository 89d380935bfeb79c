package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lacag-app/lacag/internal/currency"
)

// Config holds all lacag configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Backend    BackendConfig    `toml:"backend"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Currency   string `toml:"currency"`
	WindowDays int    `toml:"window_days"`
	DataDir    string `toml:"data_dir,omitempty"`
}

// BackendConfig points at the hosted auth and database project.
type BackendConfig struct {
	URL        string  `toml:"url,omitempty"`
	AnonKey    string  `toml:"anon_key,omitempty"`
	TimeoutSec int     `toml:"timeout_sec"`
	RatePerSec float64 `toml:"rate_per_sec"`
}

// DaemonConfig holds the local HTTP daemon settings.
type DaemonConfig struct {
	Addr               string `toml:"addr"`
	RefreshIntervalSec int    `toml:"refresh_interval_sec"`
	EventsBuffer       int    `toml:"events_buffer"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Currency:   currency.Default,
			WindowDays: 30,
		},
		Backend: BackendConfig{
			TimeoutSec: 10,
			RatePerSec: 5,
		},
		Daemon: DaemonConfig{
			Addr:               "127.0.0.1:8788",
			RefreshIntervalSec: 30,
			EventsBuffer:       200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lacag")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lacag")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns where local data lives: the configured directory, or the
// XDG data home.
func (c Config) DataDir() string {
	if c.General.DataDir != "" {
		return c.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "lacag")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "lacag")
}

// StorePath is the SQLite file under DataDir.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir(), "lacag.db")
}

// Timeout is the backend request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// RefreshInterval is how often the daemon refetches remote data.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Daemon.RefreshIntervalSec) * time.Second
}

// BackendConfigured reports whether a backend URL is set.
func (c Config) BackendConfigured() bool {
	return strings.TrimSpace(c.Backend.URL) != ""
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied last.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LACAG_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("LACAG_ANON_KEY"); v != "" {
		cfg.Backend.AnonKey = v
	}
	if v := os.Getenv("LACAG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects settings the rest of the program cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.General.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("general.window_days must be positive, got %d", c.General.WindowDays))
	}
	if !currency.Known(c.General.Currency) {
		errs = append(errs, fmt.Errorf("general.currency %q is not one of %v", c.General.Currency, currency.Available()))
	}
	if raw := strings.TrimSpace(c.Backend.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.url %q must be an absolute URL", raw))
		}
	}
	if c.Backend.TimeoutSec < 0 {
		errs = append(errs, errors.New("backend.timeout_sec must not be negative"))
	}
	if c.Daemon.RefreshIntervalSec <= 0 {
		errs = append(errs, errors.New("daemon.refresh_interval_sec must be positive"))
	}
	return errors.Join(errs...)
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile is Save for an explicit path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
