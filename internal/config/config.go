package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TelegramConfig configures the Telegram notification sink. If Token is
// empty, notifications fall back to the log sink.
type TelegramConfig struct {
	Token  string `yaml:"token" json:"token"`
	ChatID int64  `yaml:"chat_id" json:"chat_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// BaseURL is the tutoring backend endpoint, e.g. "http://127.0.0.1:8080/".
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Username/Password are used once at startup to obtain a bearer
	// token when none is stored yet.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// Listen is the HTTP listen address for the read-only status API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone lessons are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving the periodic window refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// PreloadDays is how many days around the current date are kept warm.
	PreloadDays int `yaml:"preload_days" json:"preload_days"`

	// DBPath is the SQLite file backing the local cache and sync log.
	DBPath string `yaml:"db_path" json:"db_path"`

	// CalendarDir is where exported .ics files are written. Empty
	// disables calendar export.
	CalendarDir string `yaml:"calendar_dir" json:"calendar_dir"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// BasicAuth, if non-nil, protects all status endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://127.0.0.1:8080/",
		Listen:      "127.0.0.1:8091",
		Timezone:    "Local",
		RefreshCron: "*/15 * * * *",
		PreloadDays: 2,
		DBPath:      "tutorcal.db",
		LogLevel:    "INFO",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:8080/"
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8091"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.PreloadDays <= 0 {
		c.PreloadDays = 2
	}
	if c.DBPath == "" {
		c.DBPath = "tutorcal.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned, so a first run leaves an editable file behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions; the parent directory is created if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tutorcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
