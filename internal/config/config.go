// Package config loads chatterchain settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/chatterchain/internal/markov"
)

// Config holds all chatterchain configuration.
type Config struct {
	DatabasePath string        `yaml:"database_path"`
	Markov       MarkovConfig  `yaml:"markov"`
	Logging      LoggingConfig `yaml:"logging"`
}

// MarkovConfig configures the chain model.
type MarkovConfig struct {
	Type            string `yaml:"type"`             // single, double or hybrid
	HybridThreshold int64  `yaml:"hybrid_threshold"` // only used by hybrid
	Chance          int    `yaml:"chance"`           // 1-in-N; 0 disables
	ReplyMode       string `yaml:"reply_mode"`       // off, random, reply or reply_unique
	MaxWords        int    `yaml:"max_words"`        // 0 means unlimited
	Concurrency     int    `yaml:"concurrency"`      // parallel writes per line; 0 means unlimited
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // json or console
}

// DefaultDir returns ~/.chatterchain, falling back to a relative directory
// when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatterchain"
	}
	return filepath.Join(home, ".chatterchain")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: filepath.Join(DefaultDir(), "chain.db"),
		Markov: MarkovConfig{
			Type:            markov.Hybrid.String(),
			HybridThreshold: markov.DefaultHybridThreshold,
			Chance:          markov.DefaultChance,
			ReplyMode:       markov.DefaultReplyMode.String(),
			MaxWords:        markov.DefaultMaxWords,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if path := os.Getenv("CHATTERCHAIN_DB"); path != "" {
		c.DatabasePath = path
	}
	if v := os.Getenv("CHATTERCHAIN_CHANCE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHATTERCHAIN_CHANCE %q: %w", v, err)
		}
		c.Markov.Chance = n
	}
	if level := os.Getenv("CHATTERCHAIN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is empty")
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := markov.ParseReplyMode(c.Markov.ReplyMode); err != nil {
		return err
	}
	if c.Markov.Chance < 0 {
		return fmt.Errorf("markov.chance must be >= 0, got %d", c.Markov.Chance)
	}
	if c.Markov.MaxWords < 0 {
		return fmt.Errorf("markov.max_words must be >= 0, got %d", c.Markov.MaxWords)
	}
	if c.Markov.Concurrency < 0 {
		return fmt.Errorf("markov.concurrency must be >= 0, got %d", c.Markov.Concurrency)
	}

	validLevel := false
	for _, l := range ValidLevels {
		if strings.EqualFold(c.Logging.Level, l) {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}

// Mode returns the configured order mode.
func (c *Config) Mode() (markov.Mode, error) {
	order, err := markov.ParseOrder(c.Markov.Type)
	if err != nil {
		return markov.Mode{}, err
	}
	m := markov.Mode{Order: order}
	if order == markov.Hybrid {
		if c.Markov.HybridThreshold < 1 {
			return markov.Mode{}, fmt.Errorf("markov.hybrid_threshold must be >= 1, got %d", c.Markov.HybridThreshold)
		}
		m.Threshold = c.Markov.HybridThreshold
	}
	return m, nil
}

// Options converts the markov section into chain options. Call Validate
// first; invalid values are reported here too.
func (c *Config) Options() ([]markov.Option, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	reply, err := markov.ParseReplyMode(c.Markov.ReplyMode)
	if err != nil {
		return nil, err
	}
	return []markov.Option{
		markov.WithMode(mode),
		markov.WithChance(c.Markov.Chance),
		markov.WithReplyMode(reply),
		markov.WithMaxWords(c.Markov.MaxWords),
		markov.WithConcurrency(c.Markov.Concurrency),
	}, nil
}
