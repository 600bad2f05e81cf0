// Package config handles application configuration: backend credentials
// from environment variables and reaction definitions from a YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/andrewmolyneux/reactbot/reaction"
)

// Config holds all application configuration.
type Config struct {
	// BotID is the bot's own user id on the chat platform.
	BotID string `env:"BOT_ID,required"`
	// ReactionsFile is the path of the YAML reaction definitions.
	ReactionsFile string `env:"REACTIONS_FILE" envDefault:"reactions.yaml"`
	// ListenAddr is the admin HTTP listen address.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// LogLevel is a zerolog level name (debug, info, warn, ...).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Giphy GiphyConfig
	Tenor TenorConfig
}

// GiphyConfig holds Giphy-specific configuration.
type GiphyConfig struct {
	APIKey string `env:"GIPHY_API_KEY"`
}

// TenorConfig holds Tenor-specific configuration.
type TenorConfig struct {
	APIKey string `env:"TENOR_API_KEY"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// HasGiphy returns true if Giphy configuration is complete.
func (c *Config) HasGiphy() bool {
	return c.Giphy.APIKey != ""
}

// HasTenor returns true if Tenor configuration is complete.
func (c *Config) HasTenor() bool {
	return c.Tenor.APIKey != ""
}

// Validate ensures at least one keyed backend is configured. The keyless
// otakugifs backend is always available, so this only warns about likely
// misconfiguration rather than gating startup on every key.
func (c *Config) Validate() error {
	if c.BotID == "" {
		return fmt.Errorf("BOT_ID must be set")
	}
	if c.ReactionsFile == "" {
		return fmt.Errorf("REACTIONS_FILE must be set")
	}
	return nil
}

// LoadReactions reads and validates the reaction definitions file.
func LoadReactions(path string) ([]reaction.Reaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reactions file: %w", err)
	}

	var doc struct {
		Reactions []reaction.Reaction `yaml:"reactions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse reactions file: %w", err)
	}
	if len(doc.Reactions) == 0 {
		return nil, fmt.Errorf("reactions file %s: no reactions defined", path)
	}

	for _, r := range doc.Reactions {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("reactions file %s: %w", path, err)
		}
	}
	return doc.Reactions, nil
}
