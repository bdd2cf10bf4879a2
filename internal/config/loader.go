package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default deployment file name.
const DefaultConfigFile = ".pixelperfect.yml"

// ErrConfigNotFound is returned when the deployment file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .pixelperfect.yml deployment file.
// Secrets are intentionally absent: they come from the environment via
// ApplyEnvOverrides so this file can live in version control.
type File struct {
	// ListenAddress overrides the HTTP bind address.
	ListenAddress string `yaml:"listen_address,omitempty"`

	// BaseURL overrides the canonical site origin.
	BaseURL string `yaml:"base_url,omitempty"`

	// ContentDir overrides the pSEO data directory.
	ContentDir string `yaml:"content_dir,omitempty"`

	// DBDir overrides the SQLite database directory.
	DBDir string `yaml:"db_dir,omitempty"`

	// AllowedOrigins lists CORS origins for API routes.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`

	// PublicRateLimit and UserRateLimit override rate limits
	// (requests per minute).
	PublicRateLimit int `yaml:"public_rate_limit,omitempty"`
	UserRateLimit   int `yaml:"user_rate_limit,omitempty"`

	// SyncConcurrency overrides reconciliation record fan-out.
	SyncConcurrency int `yaml:"sync_concurrency,omitempty"`

	// KafkaTopic overrides the billing event topic.
	KafkaTopic string `yaml:"kafka_topic,omitempty"`

	// WatchContent enables content hot reload.
	WatchContent bool `yaml:"watch_content,omitempty"`
}

// LoadConfigFile loads deployment settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply merges non-zero file values into the Config.
// CLI flags are applied after this, so explicit flags win over the file.
func (cf *File) Apply(cfg *Config) {
	if cf.ListenAddress != "" {
		cfg.ListenAddress = cf.ListenAddress
	}
	if cf.BaseURL != "" {
		cfg.BaseURL = cf.BaseURL
	}
	if cf.ContentDir != "" {
		cfg.ContentDir = cf.ContentDir
	}
	if cf.DBDir != "" {
		cfg.DBDir = cf.DBDir
	}
	if len(cf.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = cf.AllowedOrigins
	}
	if cf.PublicRateLimit > 0 {
		cfg.PublicRateLimit = cf.PublicRateLimit
	}
	if cf.UserRateLimit > 0 {
		cfg.UserRateLimit = cf.UserRateLimit
	}
	if cf.SyncConcurrency > 0 {
		cfg.SyncConcurrency = cf.SyncConcurrency
	}
	if cf.KafkaTopic != "" {
		cfg.KafkaTopic = cf.KafkaTopic
	}
	if cf.WatchContent {
		cfg.WatchContent = true
	}
}

// FindConfigFile searches for the deployment file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pixelperfect.yml in the current directory
// 3. Look for it in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check XDG config directory
	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
