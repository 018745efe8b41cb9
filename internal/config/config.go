package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Storage modes select which blob-store variant backs screenshot uploads.
const (
	StorageConnected = "connected"
	StorageOffline   = "offline"
)

// Config models fieldlens.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	Storage struct {
		// Mode is "connected" (files written under the workspace, served
		// at PublicBase) or "offline" (in-memory, session-scoped URLs).
		Mode       string `yaml:"mode"`
		PublicBase string `yaml:"public_base"`
	} `yaml:"storage"`
	Defaults struct {
		ReporterRole string `yaml:"reporter_role"`
	} `yaml:"defaults"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig describes one event delivery target. An empty Events list
// subscribes to every event type.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with fieldlens init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the workspace defaults when no config file exists.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Storage.Mode != StorageConnected && c.Storage.Mode != StorageOffline {
		return fmt.Errorf("config.storage.mode must be %q or %q", StorageConnected, StorageOffline)
	}
	if c.Auth.TokenTTLMinutes < 0 {
		return fmt.Errorf("config.auth.token_ttl_minutes must not be negative")
	}
	if r := c.Defaults.ReporterRole; r != "" && r != "PM" && r != "FDE" {
		return fmt.Errorf("config.defaults.reporter_role must be PM or FDE")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "fieldlens.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8787"
	}
	if cfg.Server.BasePath == "" {
		cfg.Server.BasePath = "/api/v1"
	}
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = StorageConnected
	}
	if cfg.Storage.PublicBase == "" {
		cfg.Storage.PublicBase = "/files"
	}
	if cfg.Auth.TokenTTLMinutes == 0 {
		cfg.Auth.TokenTTLMinutes = 12 * 60
	}
	if cfg.Defaults.ReporterRole == "" {
		cfg.Defaults.ReporterRole = "FDE"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8787
  base_path: /api/v1

auth:
  # HS256 secret for bearer tokens. Empty disables JWT auth; API keys
  # still work.
  jwt_secret: ""
  token_ttl_minutes: 720

storage:
  # connected: screenshots written under .fieldlens/screenshots and served
  # at public_base. offline: in-memory, URLs valid for this process only.
  mode: connected
  public_base: /files

defaults:
  reporter_role: FDE

log:
  level: info
`
