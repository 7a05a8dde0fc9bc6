package sellthrough_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

func intPtr(v int) *int {
	return &v
}

// baselineFor builds a store-level baseline whose expected units over the
// default 15-day period equal unitsSold.
func baselineFor(unitsSold float64) sellthrough.Baseline {
	return sellthrough.Baseline{
		UnitsSold:  unitsSold,
		PeriodDays: 15,
		Source:     sellthrough.BaselineSourceStore,
	}
}

func newValidator(t *testing.T) *sellthrough.Validator {
	t.Helper()

	v, err := sellthrough.NewValidator(nil)
	require.NoError(t, err)

	return v
}

func TestValidator_NewItem(t *testing.T) {
	v := newValidator(t)

	// Increase from zero stock with projected sell-through 40%.
	rec := sellthrough.Recommendation{
		StoreID:          "store-1",
		CategoryKey:      "dairy|yogurt",
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(0),
		ProposedQuantity: intPtr(3),
	}

	res, err := v.Validate(rec, baselineFor(1.2), true)
	require.NoError(t, err)

	assert.True(t, res.Approve)
	assert.Equal(t, sellthrough.ReasonApprovedNewItem, res.Reason)
	assert.Contains(t, res.Rationale, "new item")

	require.NotNil(t, res.CurrentPct)
	assert.InDelta(t, 0, *res.CurrentPct, 1e-9)
	require.NotNil(t, res.ProjectedPct)
	assert.InDelta(t, 40, *res.ProjectedPct, 1e-9)
}

func TestValidator_DecreaseImproves(t *testing.T) {
	v := newValidator(t)

	// 20 -> 10 units with 6 expected sales: 30% becomes 60%.
	rec := sellthrough.Recommendation{
		Action:           sellthrough.ActionDecrease,
		CurrentQuantity:  intPtr(20),
		ProposedQuantity: intPtr(10),
	}

	res, err := v.Validate(rec, baselineFor(6), true)
	require.NoError(t, err)

	assert.True(t, res.Approve)
	assert.Equal(t, sellthrough.ReasonApproved, res.Reason)
	require.NotNil(t, res.ImprovementPP)
	assert.InDelta(t, 30, *res.ImprovementPP, 1e-9)
}

func TestValidator_MissingBaseline(t *testing.T) {
	v := newValidator(t)

	rec := sellthrough.Recommendation{
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(10),
		ProposedQuantity: intPtr(20),
	}

	res, err := v.Validate(rec, sellthrough.Baseline{}, false)
	require.NoError(t, err)

	assert.False(t, res.Approve)
	assert.Equal(t, sellthrough.ReasonMissingBaseline, res.Reason)
	assert.Equal(t, "skipped: missing historical baseline", res.Rationale)
	assert.Equal(t, "skipped", res.Status())
	assert.Nil(t, res.CurrentPct)
	assert.Nil(t, res.ProjectedPct)
}

func TestValidator_BelowMinimumThreshold(t *testing.T) {
	v := newValidator(t)

	// 100 -> 130 units with 26 expected sales: projected 20% < 25% minimum.
	rec := sellthrough.Recommendation{
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(100),
		ProposedQuantity: intPtr(130),
	}

	res, err := v.Validate(rec, baselineFor(26), true)
	require.NoError(t, err)

	assert.False(t, res.Approve)
	assert.Equal(t, sellthrough.ReasonBelowMinimum, res.Reason)
	assert.Contains(t, res.Rationale, "below 25.0% minimum")
	require.NotNil(t, res.ProjectedPct)
	assert.InDelta(t, 20, *res.ProjectedPct, 1e-9)
}

func TestValidator_SmallCountTolerance(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name            string
		current         int
		proposed        int
		unitsSold       float64
		wantImprovement float64
		wantApprove     bool
		wantReason      sellthrough.ReasonCode
	}{
		{
			// 80% -> 40% is a 40pp drop, within the -50pp small-count band.
			name:            "small current count absorbs a 40pp drop",
			current:         4,
			proposed:        8,
			unitsSold:       3.2,
			wantImprovement: -40,
			wantApprove:     true,
			wantReason:      sellthrough.ReasonApproved,
		},
		{
			// The identical 40pp drop on a 50-unit base breaches -10pp.
			name:            "standard tolerance rejects the same 40pp drop",
			current:         50,
			proposed:        100,
			unitsSold:       40,
			wantImprovement: -40,
			wantApprove:     false,
			wantReason:      sellthrough.ReasonDegradation,
		},
		{
			// 80% -> 72% is an 8pp drop, inside the standard band.
			name:            "standard tolerance allows a drop under 10pp",
			current:         45,
			proposed:        50,
			unitsSold:       36,
			wantImprovement: -8,
			wantApprove:     true,
			wantReason:      sellthrough.ReasonApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sellthrough.Recommendation{
				Action:           sellthrough.ActionIncrease,
				CurrentQuantity:  intPtr(tt.current),
				ProposedQuantity: intPtr(tt.proposed),
			}

			res, err := v.Validate(rec, baselineFor(tt.unitsSold), true)
			require.NoError(t, err)

			assert.Equal(t, tt.wantApprove, res.Approve)
			assert.Equal(t, tt.wantReason, res.Reason)

			require.NotNil(t, res.ImprovementPP)
			assert.InDelta(t, tt.wantImprovement, *res.ImprovementPP, 1e-9)
		})
	}
}

func TestValidator_PercentagesStayWithinBounds(t *testing.T) {
	v := newValidator(t)

	// 30 expected sales against 1 then 2 units: raw arithmetic says 3000%
	// and 1500%, both must cap at 100.
	rec := sellthrough.Recommendation{
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(1),
		ProposedQuantity: intPtr(2),
	}

	res, err := v.Validate(rec, baselineFor(30), true)
	require.NoError(t, err)

	require.NotNil(t, res.CurrentPct)
	require.NotNil(t, res.ProjectedPct)
	assert.LessOrEqual(t, *res.CurrentPct, 100.0)
	assert.GreaterOrEqual(t, *res.CurrentPct, 0.0)
	assert.LessOrEqual(t, *res.ProjectedPct, 100.0)
	assert.GreaterOrEqual(t, *res.ProjectedPct, 0.0)

	// Both sides cap at 100, so the capped improvement is zero and the
	// increase passes.
	require.NotNil(t, res.ImprovementPP)
	assert.InDelta(t, 0, *res.ImprovementPP, 1e-9)
	assert.True(t, res.Approve)
}

func TestValidator_Deterministic(t *testing.T) {
	v := newValidator(t)

	rec := sellthrough.Recommendation{
		StoreID:          "store-7",
		CategoryKey:      "bakery|bread",
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(12),
		ProposedQuantity: intPtr(18),
	}
	baseline := baselineFor(9)

	first, err := v.Validate(rec, baseline, true)
	require.NoError(t, err)

	for range 10 {
		again, againErr := v.Validate(rec, baseline, true)
		require.NoError(t, againErr)
		assert.Equal(t, first, again)
	}
}

func TestValidator_MissingQuantities(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name string
		rec  sellthrough.Recommendation
	}{
		{
			name: "missing current",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionIncrease,
				ProposedQuantity: intPtr(10),
			},
		},
		{
			name: "missing proposed",
			rec: sellthrough.Recommendation{
				Action:          sellthrough.ActionDecrease,
				CurrentQuantity: intPtr(10),
			},
		},
		{
			name: "missing both",
			rec:  sellthrough.Recommendation{Action: sellthrough.ActionIncrease},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A rich baseline must not tempt the gate into fabricating
			// the missing side.
			res, err := v.Validate(tt.rec, baselineFor(50), true)
			require.NoError(t, err)

			assert.False(t, res.Approve)
			assert.Equal(t, sellthrough.ReasonMissingFields, res.Reason)
			assert.Contains(t, res.Rationale, "missing")
			assert.Equal(t, "skipped", res.Status())
		})
	}
}

func TestValidator_ContractViolations(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name    string
		rec     sellthrough.Recommendation
		wantErr error
	}{
		{
			name: "unknown action",
			rec: sellthrough.Recommendation{
				Action:           "REMOVE",
				CurrentQuantity:  intPtr(5),
				ProposedQuantity: intPtr(0),
			},
			wantErr: sellthrough.ErrUnknownAction,
		},
		{
			name: "negative current quantity",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionIncrease,
				CurrentQuantity:  intPtr(-1),
				ProposedQuantity: intPtr(5),
			},
			wantErr: sellthrough.ErrNegativeQuantity,
		},
		{
			name: "negative proposed quantity",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionDecrease,
				CurrentQuantity:  intPtr(5),
				ProposedQuantity: intPtr(-5),
			},
			wantErr: sellthrough.ErrNegativeQuantity,
		},
		{
			name: "zero delta",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionIncrease,
				CurrentQuantity:  intPtr(5),
				ProposedQuantity: intPtr(5),
			},
			wantErr: sellthrough.ErrActionMismatch,
		},
		{
			name: "increase that shrinks stock",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionIncrease,
				CurrentQuantity:  intPtr(10),
				ProposedQuantity: intPtr(5),
			},
			wantErr: sellthrough.ErrActionMismatch,
		},
		{
			name: "decrease that grows stock",
			rec: sellthrough.Recommendation{
				Action:           sellthrough.ActionDecrease,
				CurrentQuantity:  intPtr(5),
				ProposedQuantity: intPtr(10),
			},
			wantErr: sellthrough.ErrActionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.rec, baselineFor(10), true)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidator_Discontinuation(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name        string
		unitsSold   float64
		wantApprove bool
		wantReason  sellthrough.ReasonCode
	}{
		{
			// Current sell-through 20% is at or below the 25% minimum.
			name:        "slow mover approved",
			unitsSold:   4,
			wantApprove: true,
			wantReason:  sellthrough.ReasonApprovedDiscontinuation,
		},
		{
			// Current sell-through 50% still clears the minimum.
			name:        "healthy category kept",
			unitsSold:   10,
			wantApprove: false,
			wantReason:  sellthrough.ReasonDiscontinuationAboveMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sellthrough.Recommendation{
				Action:           sellthrough.ActionDecrease,
				CurrentQuantity:  intPtr(20),
				ProposedQuantity: intPtr(0),
			}

			res, err := v.Validate(rec, baselineFor(tt.unitsSold), true)
			require.NoError(t, err)

			assert.Equal(t, tt.wantApprove, res.Approve)
			assert.Equal(t, tt.wantReason, res.Reason)
			// Projected sell-through is undefined when nothing remains.
			assert.Nil(t, res.ProjectedPct)
		})
	}
}

func TestValidator_UnusableBaselinePeriod(t *testing.T) {
	v := newValidator(t)

	rec := sellthrough.Recommendation{
		Action:           sellthrough.ActionIncrease,
		CurrentQuantity:  intPtr(5),
		ProposedQuantity: intPtr(10),
	}

	res, err := v.Validate(rec, sellthrough.Baseline{UnitsSold: 10, PeriodDays: 0}, true)
	require.NoError(t, err)

	assert.False(t, res.Approve)
	assert.Equal(t, sellthrough.ReasonMissingBaseline, res.Reason)
}

func TestValidator_RationaleAnnotations(t *testing.T) {
	v := newValidator(t)

	t.Run("optimal target note", func(t *testing.T) {
		// 11 -> 12 units with 9 expected sales: 81.8% -> 75%, a -6.8pp dip
		// inside the -10pp tolerance, and projected 75% >= 70% optimal.
		rec := sellthrough.Recommendation{
			Action:           sellthrough.ActionIncrease,
			CurrentQuantity:  intPtr(11),
			ProposedQuantity: intPtr(12),
		}

		res, err := v.Validate(rec, baselineFor(9), true)
		require.NoError(t, err)

		assert.True(t, res.Approve)
		assert.Equal(t, sellthrough.ReasonApproved, res.Reason)
		assert.Contains(t, res.Rationale, "optimal target")
	})

	t.Run("degradation past tolerance rejects despite optimal target", func(t *testing.T) {
		// 10 -> 12 units with 9 expected sales: 90% -> 75% is -15pp, past
		// the -10pp tolerance. The projected value clears the optimal
		// target, but the note only annotates, it never overrides the gate.
		rec := sellthrough.Recommendation{
			Action:           sellthrough.ActionIncrease,
			CurrentQuantity:  intPtr(10),
			ProposedQuantity: intPtr(12),
		}

		res, err := v.Validate(rec, baselineFor(9), true)
		require.NoError(t, err)

		assert.False(t, res.Approve)
		assert.Equal(t, sellthrough.ReasonDegradation, res.Reason)
		require.NotNil(t, res.ImprovementPP)
		assert.InDelta(t, -15, *res.ImprovementPP, 1e-9)
		assert.Contains(t, res.Rationale, "optimal target")
	})

	t.Run("group baseline provenance", func(t *testing.T) {
		rec := sellthrough.Recommendation{
			Action:           sellthrough.ActionIncrease,
			CurrentQuantity:  intPtr(10),
			ProposedQuantity: intPtr(15),
		}
		baseline := sellthrough.Baseline{
			UnitsSold:  6,
			PeriodDays: 15,
			Source:     sellthrough.BaselineSourceGroup,
		}

		res, err := v.Validate(rec, baseline, true)
		require.NoError(t, err)

		assert.Contains(t, res.Rationale, "baseline estimated from store group")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*sellthrough.Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *sellthrough.Config) {},
		},
		{
			name:    "minimum threshold out of range",
			mutate:  func(c *sellthrough.Config) { c.MinSellThroughPct = 0 },
			wantErr: sellthrough.ErrInvalidMinThreshold,
		},
		{
			name:    "optimal target out of range",
			mutate:  func(c *sellthrough.Config) { c.OptimalSellThroughPct = 101 },
			wantErr: sellthrough.ErrInvalidOptimalTarget,
		},
		{
			name:    "positive degradation tolerance",
			mutate:  func(c *sellthrough.Config) { c.MaxDegradationPP = 10 },
			wantErr: sellthrough.ErrInvalidDegradation,
		},
		{
			name:    "small-count tolerance tighter than standard",
			mutate:  func(c *sellthrough.Config) { c.MaxDegradationSmallCountPP = -5 },
			wantErr: sellthrough.ErrInvalidSmallCountTolerance,
		},
		{
			name:    "negative small-count threshold",
			mutate:  func(c *sellthrough.Config) { c.SmallCountThresholdUnits = -1 },
			wantErr: sellthrough.ErrInvalidSmallCountThreshold,
		},
		{
			name:    "zero period",
			mutate:  func(c *sellthrough.Config) { c.PeriodDays = 0 },
			wantErr: sellthrough.ErrInvalidPeriodDays,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sellthrough.DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
