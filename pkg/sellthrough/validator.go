package sellthrough

import (
	"fmt"
)

// Validator decides whether applying a recommendation is expected to maintain
// or improve inventory efficiency. Sell-through is the official retail
// definition, units_sold / units_in_stock, not a days-of-supply proxy.
//
// Validate is a pure function of the recommendation, the baseline, and the
// configured thresholds: no I/O, no mutation, and bit-identical results for
// identical inputs.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given policy thresholds.
func NewValidator(cfg *Config) (*Validator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validator config: %w", err)
	}

	return &Validator{cfg: *cfg}, nil
}

// Config returns a copy of the validator's thresholds.
func (v *Validator) Config() Config {
	return v.cfg
}

// Validate gates one recommendation against its historical baseline.
//
// Missing quantities or a missing baseline produce a skip result, never a
// fabricated pass: substituting synthetic values for absent data is exactly
// the failure mode this gate exists to prevent. Contract violations
// (negative quantities, unknown action, delta/action mismatch) are caller
// bugs and return an error instead.
func (v *Validator) Validate(rec Recommendation, baseline Baseline, found bool) (Result, error) {
	if rec.Action != ActionIncrease && rec.Action != ActionDecrease {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, rec.Action)
	}

	if rec.CurrentQuantity != nil && *rec.CurrentQuantity < 0 {
		return Result{}, fmt.Errorf("%w: current %d", ErrNegativeQuantity, *rec.CurrentQuantity)
	}
	if rec.ProposedQuantity != nil && *rec.ProposedQuantity < 0 {
		return Result{}, fmt.Errorf("%w: proposed %d", ErrNegativeQuantity, *rec.ProposedQuantity)
	}

	if !rec.HasQuantities() {
		return skipResult(ReasonMissingFields, "skipped: missing required quantity fields"), nil
	}

	delta, _ := rec.QuantityDelta()
	switch {
	case delta == 0:
		return Result{}, fmt.Errorf("%w: delta is zero", ErrActionMismatch)
	case rec.Action == ActionIncrease && delta < 0,
		rec.Action == ActionDecrease && delta > 0:
		return Result{}, fmt.Errorf("%w: action %s with delta %+d", ErrActionMismatch, rec.Action, delta)
	}

	if !found {
		return skipResult(ReasonMissingBaseline, "skipped: missing historical baseline"), nil
	}

	salesRate, ok := baseline.SalesRate()
	if !ok {
		return skipResult(ReasonMissingBaseline, "skipped: historical baseline has no usable period"), nil
	}

	// Units expected to sell over one reporting period at the baseline rate.
	expectedUnits := salesRate * float64(v.cfg.PeriodDays)

	current := *rec.CurrentQuantity
	proposed := *rec.ProposedQuantity

	res := Result{}

	// Current sell-through. Zero current stock means there is nothing to
	// turn over; for an increase from zero (a new item) it is 0% by
	// convention. A decrease from zero is impossible here: the delta check
	// above already rejected it.
	currentPct := 0.0
	if current > 0 {
		currentPct = clampPct(100 * expectedUnits / float64(current))
	}
	res.CurrentPct = &currentPct

	// Full discontinuation: nothing left to sell through, projected is N/A.
	// Stricter reading of the policy: only approve when the current
	// sell-through is already at or below the minimum threshold.
	if proposed == 0 {
		if currentPct <= v.cfg.MinSellThroughPct {
			res.Approve = true
			res.Reason = ReasonApprovedDiscontinuation
			res.Rationale = fmt.Sprintf("approved: discontinuation, current sell-through %s at or below %s minimum",
				fmtPct(currentPct), fmtPct(v.cfg.MinSellThroughPct))
		} else {
			res.Reason = ReasonDiscontinuationAboveMinimum
			res.Rationale = fmt.Sprintf("rejected: discontinuation while current sell-through %s is above %s minimum",
				fmtPct(currentPct), fmtPct(v.cfg.MinSellThroughPct))
		}

		return v.annotate(res, baseline), nil
	}

	projectedPct := clampPct(100 * expectedUnits / float64(proposed))
	res.ProjectedPct = &projectedPct

	improvement := projectedPct - currentPct
	res.ImprovementPP = &improvement

	switch rec.Action {
	case ActionDecrease:
		// Zero tolerance: a capacity reduction that hurts turnover defeats
		// its own purpose.
		if improvement >= 0 {
			res.Approve = true
			res.Reason = ReasonApproved
			res.Rationale = fmt.Sprintf("approved: reducing stock improves sell-through by %s to %s",
				fmtPP(improvement), fmtPct(projectedPct))
		} else {
			res.Reason = ReasonDecreaseDegrades
			res.Rationale = fmt.Sprintf("rejected: reducing stock degrades sell-through by %s",
				fmtPP(improvement))
		}

	case ActionIncrease:
		if projectedPct < v.cfg.MinSellThroughPct {
			res.Reason = ReasonBelowMinimum
			res.Rationale = fmt.Sprintf("rejected: projected sell-through %s below %s minimum threshold",
				fmtPct(projectedPct), fmtPct(v.cfg.MinSellThroughPct))
			break
		}

		if current == 0 {
			res.Approve = true
			res.Reason = ReasonApprovedNewItem
			res.Rationale = fmt.Sprintf("approved: new item, projected sell-through %s", fmtPct(projectedPct))
			break
		}

		tolerance := v.cfg.MaxDegradationPP
		if current < v.cfg.SmallCountThresholdUnits {
			tolerance = v.cfg.MaxDegradationSmallCountPP
		}

		if improvement < tolerance {
			res.Reason = ReasonDegradation
			res.Rationale = fmt.Sprintf("rejected: sell-through degrades by %s, tolerance is %s",
				fmtPP(improvement), fmtPP(tolerance))
			break
		}

		res.Approve = true
		res.Reason = ReasonApproved
		if improvement >= 0 {
			res.Rationale = fmt.Sprintf("approved: improves sell-through by %s to %s",
				fmtPP(improvement), fmtPct(projectedPct))
		} else {
			res.Rationale = fmt.Sprintf("approved: projected sell-through %s within %s tolerance (%s)",
				fmtPct(projectedPct), fmtPP(tolerance), fmtPP(improvement))
		}
	}

	return v.annotate(res, baseline), nil
}

// annotate appends non-gating context: proximity to the optimal target and
// the provenance of an estimated baseline.
func (v *Validator) annotate(res Result, baseline Baseline) Result {
	if res.ProjectedPct != nil && *res.ProjectedPct >= v.cfg.OptimalSellThroughPct {
		res.Rationale += fmt.Sprintf("; at or above %s optimal target", fmtPct(v.cfg.OptimalSellThroughPct))
	}

	if baseline.Source == BaselineSourceGroup {
		res.Rationale += "; baseline estimated from store group"
	}

	return res
}

func skipResult(reason ReasonCode, rationale string) Result {
	return Result{Approve: false, Reason: reason, Rationale: rationale}
}

func clampPct(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
