package sellthrough

import (
	"errors"

	"github.com/creasty/defaults"
)

var (
	// ErrInvalidMinThreshold is returned when the minimum threshold is outside (0, 100]
	ErrInvalidMinThreshold = errors.New("minimum sell-through threshold must be in (0, 100]")
	// ErrInvalidOptimalTarget is returned when the optimal target is outside (0, 100]
	ErrInvalidOptimalTarget = errors.New("optimal sell-through target must be in (0, 100]")
	// ErrInvalidDegradation is returned when a degradation tolerance is positive
	ErrInvalidDegradation = errors.New("degradation tolerances must be zero or negative")
	// ErrInvalidSmallCountTolerance is returned when the small-count tolerance is
	// tighter than the standard tolerance
	ErrInvalidSmallCountTolerance = errors.New("small-count tolerance must be at least as permissive as the standard tolerance")
	// ErrInvalidSmallCountThreshold is returned when the small-count threshold is negative
	ErrInvalidSmallCountThreshold = errors.New("small-count threshold must be non-negative")
	// ErrInvalidPeriodDays is returned when the reporting period is not positive
	ErrInvalidPeriodDays = errors.New("period days must be positive")
)

// Config holds the policy thresholds of the compliance gate. The defaults
// mirror the merchandising policy in production; they are configuration, not
// code, so alternate policies can be tested without code changes.
//
// The small-count relaxation is deliberate: sell-through percentages over a
// tiny base (a handful of units) swing wildly, so an absolute read of a large
// percentage drop there is not meaningful. Do not tighten it back to the
// standard tolerance on symmetry grounds.
type Config struct {
	// MinSellThroughPct is the minimum projected sell-through an INCREASE must reach
	MinSellThroughPct float64 `yaml:"minSellThroughPct" default:"25"`

	// OptimalSellThroughPct only annotates rationale text, it never gates
	OptimalSellThroughPct float64 `yaml:"optimalSellThroughPct" default:"70"`

	// MaxDegradationPP is the most negative sell-through change an INCREASE may cause
	MaxDegradationPP float64 `yaml:"maxDegradationPP" default:"-10"`

	// MaxDegradationSmallCountPP relaxes MaxDegradationPP when the current
	// quantity is below SmallCountThresholdUnits
	MaxDegradationSmallCountPP float64 `yaml:"maxDegradationSmallCountPP" default:"-50"`

	// SmallCountThresholdUnits is the current-quantity cutoff for the relaxed tolerance
	SmallCountThresholdUnits int `yaml:"smallCountThresholdUnits" default:"5"`

	// PeriodDays is the length of the reporting period quantities are clamped to
	PeriodDays int `yaml:"periodDays" default:"15"`
}

// DefaultConfig returns a Config populated with the default thresholds.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Struct tags are static; this cannot fail at runtime.
		panic(err)
	}

	return cfg
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MinSellThroughPct <= 0 || c.MinSellThroughPct > 100 {
		return ErrInvalidMinThreshold
	}

	if c.OptimalSellThroughPct <= 0 || c.OptimalSellThroughPct > 100 {
		return ErrInvalidOptimalTarget
	}

	if c.MaxDegradationPP > 0 || c.MaxDegradationSmallCountPP > 0 {
		return ErrInvalidDegradation
	}

	if c.MaxDegradationSmallCountPP > c.MaxDegradationPP {
		return ErrInvalidSmallCountTolerance
	}

	if c.SmallCountThresholdUnits < 0 {
		return ErrInvalidSmallCountThreshold
	}

	if c.PeriodDays <= 0 {
		return ErrInvalidPeriodDays
	}

	return nil
}
