// Package config loads booksms configuration: a YAML file for the stable
// settings, overlaid by environment variables so deployments can override
// anything without touching the file. Secrets only come from the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"booksms/common/environment"
)

// Config is the full application configuration.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	NLP       NLPConfig       `yaml:"nlp"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Convo     ConvoConfig     `yaml:"conversation"`
}

// NLPConfig configures the hosted classifier. An empty APIKey disables the
// hosted path; classification then runs on rules alone.
type NLPConfig struct {
	APIKey  string        `yaml:"-"` // environment only, never from file
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig configures the per-sender quota.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// ConvoConfig configures the conversation tiers.
type ConvoConfig struct {
	FastTTL    time.Duration `yaml:"fast_ttl"`
	DurableTTL time.Duration `yaml:"durable_ttl"`
}

// Load reads the config file at path (optional: an empty path or a missing
// file falls back to defaults) and applies the environment overlay.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:   ":8080",
		DatabasePath: "./booksms.db",
		LogLevel:     "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus environment is a valid deployment.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnvironment()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironment() {
	c.ListenAddr = environment.StringOr("BOOKSMS_LISTEN_ADDR", c.ListenAddr)
	c.DatabasePath = environment.StringOr("DATABASE_PATH", c.DatabasePath)
	c.LogLevel = environment.StringOr("LOG_LEVEL", c.LogLevel)

	c.NLP.APIKey = environment.StringOr("OPENAI_API_KEY", c.NLP.APIKey)
	c.NLP.BaseURL = environment.StringOr("OPENAI_BASE_URL", c.NLP.BaseURL)
	c.NLP.Model = environment.StringOr("OPENAI_MODEL", c.NLP.Model)
	c.NLP.Timeout = environment.DurationOr("NLP_TIMEOUT", c.NLP.Timeout)

	c.RateLimit.Limit = environment.IntOr("RATE_LIMIT", c.RateLimit.Limit)
	c.RateLimit.Window = environment.DurationOr("RATE_WINDOW", c.RateLimit.Window)

	c.Convo.FastTTL = environment.DurationOr("CONVO_FAST_TTL", c.Convo.FastTTL)
	c.Convo.DurableTTL = environment.DurationOr("CONVO_DURABLE_TTL", c.Convo.DurableTTL)
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.RateLimit.Limit < 0 {
		return fmt.Errorf("rate_limit.limit must not be negative")
	}
	if c.Convo.FastTTL < 0 || c.Convo.DurableTTL < 0 {
		return fmt.Errorf("conversation TTLs must not be negative")
	}
	return nil
}
