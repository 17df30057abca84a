// Package config loads the authkit configuration file (YAML or JSON) with
// environment-variable expansion, defaults and validation.
package config

import (
	"fmt"
	"time"

	"github.com/clearpath-immigration/authkit/pkg/api"
	"github.com/clearpath-immigration/authkit/pkg/auth/google"
	"github.com/clearpath-immigration/authkit/pkg/identity"
	"github.com/clearpath-immigration/authkit/pkg/kvs"
)

// Config is the application configuration.
type Config struct {
	API      APIConfig      `yaml:"api" json:"api"`
	Identity IdentityConfig `yaml:"identity" json:"identity"`
	Google   google.Config  `yaml:"google" json:"google"`
	Store    kvs.Config     `yaml:"store" json:"store"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// APIConfig configures the backend client. Timeout is a duration string
// ("15s", "1m").
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// ClientConfig converts to the api package's config.
func (c APIConfig) ClientConfig() (api.Config, error) {
	timeout, err := parseTimeout(c.Timeout)
	if err != nil {
		return api.Config{}, fmt.Errorf("config: invalid api.timeout: %w", err)
	}
	return api.Config{BaseURL: c.BaseURL, Timeout: timeout}, nil
}

// IdentityConfig configures the identity-provider client.
type IdentityConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"api_key" json:"api_key"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

// ProviderConfig converts to the identity package's config.
func (c IdentityConfig) ProviderConfig() (identity.Config, error) {
	timeout, err := parseTimeout(c.Timeout)
	if err != nil {
		return identity.Config{}, fmt.Errorf("config: invalid identity.timeout: %w", err)
	}
	return identity.Config{Endpoint: c.Endpoint, APIKey: c.APIKey, Timeout: timeout}, nil
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string             `yaml:"level" json:"level"`
	Color bool               `yaml:"color" json:"color"`
	File  *FileLoggingConfig `yaml:"file" json:"file"`
}

// FileLoggingConfig contains file output and rotation settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url is required")
	}
	if c.Identity.Endpoint == "" {
		return fmt.Errorf("config: identity.endpoint is required")
	}
	if c.Identity.APIKey == "" {
		return fmt.Errorf("config: identity.api_key is required")
	}
	if _, err := parseTimeout(c.API.Timeout); err != nil {
		return fmt.Errorf("config: invalid api.timeout: %w", err)
	}
	if _, err := parseTimeout(c.Identity.Timeout); err != nil {
		return fmt.Errorf("config: invalid identity.timeout: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = "leveldb"
	}
	if cfg.Store.Namespace == "" {
		cfg.Store.Namespace = "authkit"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
