package coordinator

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/retailops/shelfwise/pkg/api"
	"github.com/retailops/shelfwise/pkg/redis"
)

var (
	// ErrScheduleRequired is returned when no run schedule is configured
	ErrScheduleRequired = errors.New("schedule is required")
	// ErrInvalidSchedule is returned when the run schedule is not a valid cron expression
	ErrInvalidSchedule = errors.New("invalid cron schedule")
)

// Config represents the complete coordinator configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9091"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`

	// Dependencies
	Redis redis.Config `yaml:"redis"`

	// Schedule is a standard five-field cron expression for pipeline runs.
	// The default triggers one run daily at 06:00 UTC, before store opening.
	Schedule string `yaml:"schedule" default:"0 6 * * *"`

	API api.Config `yaml:"api"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if c.Schedule == "" {
		return ErrScheduleRequired
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, c.Schedule, err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	return nil
}
