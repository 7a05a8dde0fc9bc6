// Package rules implements the six business rules that detect product-mix
// opportunities. Rules only detect and size candidates; every candidate must
// still pass the sell-through compliance gate before it is approved.
//
// Rules never fabricate quantities. When a rule can detect an opportunity
// but cannot size it from real data, it emits the recommendation with the
// quantity left missing so the gate skips it visibly instead of the rule
// inventing a number.
package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

var (
	// ErrNoRulesEnabled is returned when every rule is disabled in config
	ErrNoRulesEnabled = errors.New("no business rules enabled")
)

// Rule detects candidate inventory changes for the current snapshot.
type Rule interface {
	// Name returns the stable rule identifier used in reports and metrics
	Name() string

	// Evaluate produces candidate recommendations. It must not mutate the
	// snapshot or assignment.
	Evaluate(ctx context.Context, snapshot *ingest.Snapshot, groups *cluster.Assignment) ([]sellthrough.Recommendation, error)
}

// Config holds per-rule settings. Thresholds here are policy parameters, not
// engineering constants; they are expected to be tuned by the business owner.
type Config struct {
	// MaxUnitsPerPeriod caps proposed quantities, matching the ingest clamp
	MaxUnitsPerPeriod int `yaml:"maxUnitsPerPeriod" default:"100"`

	MissingCategory      MissingCategoryConfig      `yaml:"missingCategory"`
	ImbalancedAllocation ImbalancedAllocationConfig `yaml:"imbalancedAllocation"`
	BelowMinimum         BelowMinimumConfig         `yaml:"belowMinimum"`
	Overcapacity         OvercapacityConfig         `yaml:"overcapacity"`
	MissedSales          MissedSalesConfig          `yaml:"missedSales"`
	SalesPerformance     SalesPerformanceConfig     `yaml:"salesPerformance"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxUnitsPerPeriod <= 0 {
		return errors.New("max units per period must be positive")
	}

	return nil
}

// New builds the enabled rules in their pipeline order.
func New(log logrus.FieldLogger, cfg *Config) ([]Rule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules config: %w", err)
	}

	all := []struct {
		enabled bool
		rule    Rule
	}{
		{cfg.MissingCategory.Enabled, &missingCategoryRule{log: log, cfg: cfg}},
		{cfg.ImbalancedAllocation.Enabled, &imbalancedAllocationRule{log: log, cfg: cfg}},
		{cfg.BelowMinimum.Enabled, &belowMinimumRule{log: log, cfg: cfg}},
		{cfg.Overcapacity.Enabled, &overcapacityRule{log: log, cfg: cfg}},
		{cfg.MissedSales.Enabled, &missedSalesRule{log: log, cfg: cfg}},
		{cfg.SalesPerformance.Enabled, &salesPerformanceRule{log: log, cfg: cfg}},
	}

	enabled := make([]Rule, 0, len(all))
	for _, entry := range all {
		if entry.enabled {
			enabled = append(enabled, entry.rule)
		}
	}

	if len(enabled) == 0 {
		return nil, ErrNoRulesEnabled
	}

	return enabled, nil
}
