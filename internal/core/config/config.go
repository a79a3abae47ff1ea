// Package config handles configuration loading and validation for chanfeed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

// View roles accepted by metadata queries.
const (
	RoleGuest      = "GUEST"
	RoleSubscriber = "SUBSCRIBER"
	RoleAdmin      = "ADMIN"
	RoleOwner      = "OWNER"
)

// Config holds the application configuration.
type Config struct {
	ServerJID      string           `yaml:"server_jid"`
	AutoFollow     AutoFollowConfig `yaml:"auto_follow"`
	QueryTimeout   time.Duration    `yaml:"query_timeout"`
	DecryptWorkers int              `yaml:"decrypt_workers"`
	ViewRole       string           `yaml:"view_role"`
	DataDir        string           `yaml:"-"` // set by caller, not from config file
}

// AutoFollowConfig controls the follow-on-connect behaviour.
type AutoFollowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerJID: newsletter.DefaultServerJID,
		AutoFollow: AutoFollowConfig{
			Enabled: true,
			Channel: newsletter.DefaultPromoChannel,
		},
		QueryTimeout:   20 * time.Second,
		DecryptWorkers: 8,
		ViewRole:       RoleGuest,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.ServerJID == "" {
		c.ServerJID = defaults.ServerJID
	}
	if c.AutoFollow.Channel == "" {
		c.AutoFollow.Channel = defaults.AutoFollow.Channel
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = defaults.QueryTimeout
	}
	if c.DecryptWorkers == 0 {
		c.DecryptWorkers = defaults.DecryptWorkers
	}
	if c.ViewRole == "" {
		c.ViewRole = defaults.ViewRole
	}
}

// ChannelsFile returns the path to the cached channel metadata.
func (c *Config) ChannelsFile() string {
	return filepath.Join(c.DataDir, "channels.json")
}

// ActivityDir returns the directory holding the auto-follow activity log.
func (c *Config) ActivityDir() string {
	return filepath.Join(c.DataDir, "activity")
}
