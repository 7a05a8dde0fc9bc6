package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/retailops/shelfwise/pkg/pipeline"
	"github.com/retailops/shelfwise/pkg/redis"
)

// CLIConfig represents configuration for one-shot CLI commands
type CLIConfig struct {
	// Logging level
	Logging string `yaml:"logging" default:"info"`

	// Pipeline configuration
	Pipeline pipeline.Config `yaml:"pipeline"`

	// Redis configuration (optional, enables the baseline cache and
	// the run manifest)
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis,omitempty"`
}

// RedisConfig builds a full Redis config when a URL is set, nil otherwise.
func (c *CLIConfig) RedisConfig() (*redis.Config, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}

	cfg := &redis.Config{URL: c.Redis.URL}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the CLI configuration
func (c *CLIConfig) Validate() error {
	return c.Pipeline.Validate()
}

// LoadCLIConfig loads CLI configuration from a YAML file
func LoadCLIConfig(path string) (*CLIConfig, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &CLIConfig{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	// Try to read the file, but allow it to not exist
	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, run on defaults
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
