// Package config loads engine configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Interner kinds.
const (
	InternerHash    = "hash"
	InternerOrdered = "ordered"
)

// DefaultFileName is the conventional config file name.
const DefaultFileName = "didl.yaml"

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	Caller bool   `yaml:"caller"`
}

type InternerConfig struct {
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity,omitempty"`
}

type SortConfig struct {
	ForceDistinction bool   `yaml:"force_distinction"`
	DefaultCriteria  string `yaml:"default_criteria,omitempty"`
}

type ModerationConfig struct {
	Delimiter       string `yaml:"delimiter"`
	PairDelimiter   string `yaml:"pair_delimiter"`
	CollapseOnEmpty bool   `yaml:"collapse_on_empty"`
	MinInterval     string `yaml:"min_interval"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Interner   InternerConfig   `yaml:"interner"`
	Sort       SortConfig       `yaml:"sort"`
	Moderation ModerationConfig `yaml:"moderation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Interner: InternerConfig{Kind: InternerHash},
		Moderation: ModerationConfig{
			Delimiter:       ",",
			PairDelimiter:   ",",
			CollapseOnEmpty: true,
			MinInterval:     "200ms",
		},
	}
}

// Load reads the YAML file at path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Interner.Kind {
	case InternerHash, InternerOrdered:
	default:
		return fmt.Errorf("%w: interner.kind must be %q or %q, got %q",
			ErrInvalidConfig, InternerHash, InternerOrdered, c.Interner.Kind)
	}
	if c.Interner.Capacity < 0 {
		return fmt.Errorf("%w: interner.capacity cannot be negative", ErrInvalidConfig)
	}
	if c.Moderation.Delimiter == "" {
		return fmt.Errorf("%w: moderation.delimiter cannot be empty", ErrInvalidConfig)
	}
	if c.Moderation.PairDelimiter == "" {
		return fmt.Errorf("%w: moderation.pair_delimiter cannot be empty", ErrInvalidConfig)
	}
	if _, err := c.MinInterval(); err != nil {
		return err
	}
	return nil
}

// MinInterval parses moderation.min_interval. Empty means no rate limit.
func (c *Config) MinInterval() (time.Duration, error) {
	if c.Moderation.MinInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Moderation.MinInterval)
	if err != nil {
		return 0, fmt.Errorf("%w: moderation.min_interval: %v", ErrInvalidConfig, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: moderation.min_interval cannot be negative", ErrInvalidConfig)
	}
	return d, nil
}
