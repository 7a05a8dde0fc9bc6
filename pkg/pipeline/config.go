package pipeline

import (
	"fmt"
	"time"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/report"
	"github.com/retailops/shelfwise/pkg/rules"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// Config aggregates the per-step configuration of one pipeline.
type Config struct {
	Ingest     ingest.Config      `yaml:"ingest"`
	Cluster    cluster.Config     `yaml:"cluster"`
	Rules      rules.Config       `yaml:"rules"`
	Validation sellthrough.Config `yaml:"validation"`
	Report     report.Config      `yaml:"report"`

	// BaselineCacheTTL bounds how long baseline lookups are cached in Redis
	// when a Redis client is supplied
	BaselineCacheTTL time.Duration `yaml:"baselineCacheTTL" default:"1h"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}
