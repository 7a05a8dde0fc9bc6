package worker

import (
	"errors"
	"fmt"

	"github.com/retailops/shelfwise/pkg/pipeline"
	"github.com/retailops/shelfwise/pkg/redis"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
)

// Config represents the complete worker configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9090"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`

	// Dependencies
	Redis redis.Config `yaml:"redis"`

	// Worker specific. Pipeline runs are heavyweight and touch the same
	// output directory, so the default is a single run at a time.
	Concurrency int `yaml:"concurrency" default:"1"`

	Pipeline pipeline.Config `yaml:"pipeline"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	return nil
}
