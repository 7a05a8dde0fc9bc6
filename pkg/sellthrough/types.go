// Package sellthrough implements the sell-through compliance gate. Every
// proposed inventory-quantity change produced by a business rule must pass
// through the validator before it becomes an approved recommendation.
package sellthrough

import (
	"context"
	"errors"
	"fmt"
)

// Action is the direction of a proposed inventory change.
type Action string

const (
	// ActionIncrease adds units to a store/category allocation.
	ActionIncrease Action = "INCREASE"
	// ActionDecrease removes units from a store/category allocation.
	ActionDecrease Action = "DECREASE"
)

// Contract violations. These indicate caller bugs rather than data-quality
// gaps and are surfaced as errors instead of skip results.
var (
	// ErrUnknownAction is returned when the action is neither INCREASE nor DECREASE
	ErrUnknownAction = errors.New("unknown recommendation action")
	// ErrNegativeQuantity is returned when a quantity is negative
	ErrNegativeQuantity = errors.New("quantity must be non-negative")
	// ErrActionMismatch is returned when the quantity delta does not match the action
	ErrActionMismatch = errors.New("quantity delta does not match action")
)

// Recommendation is a candidate inventory change for one store/category pair.
// Quantities are pointers so that "missing" is a first-class state: a nil
// quantity means the rule step could not derive the value from real data,
// and the validator must skip rather than substitute a default.
type Recommendation struct {
	StoreID          string
	CategoryKey      string
	Rule             string
	Action           Action
	CurrentQuantity  *int
	ProposedQuantity *int
}

// HasQuantities reports whether both quantity fields are present.
func (r Recommendation) HasQuantities() bool {
	return r.CurrentQuantity != nil && r.ProposedQuantity != nil
}

// QuantityDelta returns proposed minus current. The second return value is
// false when either quantity is missing.
func (r Recommendation) QuantityDelta() (int, bool) {
	if !r.HasQuantities() {
		return 0, false
	}

	return *r.ProposedQuantity - *r.CurrentQuantity, true
}

// Key identifies the unique combination the validator is a pure function of.
// Two recommendations sharing a Key always receive the identical result,
// which is the contract that justifies batch deduplication.
type Key struct {
	StoreID     string
	CategoryKey string
	// Current and Proposed are -1 when the quantity is missing so that
	// missing-field recommendations still dedupe consistently.
	Current  int
	Proposed int
}

// DedupKey returns the dedup key for this recommendation.
func (r Recommendation) DedupKey() Key {
	k := Key{StoreID: r.StoreID, CategoryKey: r.CategoryKey, Current: -1, Proposed: -1}
	if r.CurrentQuantity != nil {
		k.Current = *r.CurrentQuantity
	}
	if r.ProposedQuantity != nil {
		k.Proposed = *r.ProposedQuantity
	}

	return k
}

// Baseline source labels, recorded in the rationale so a reviewer can tell a
// store-level measurement from a cluster-group estimate.
const (
	// BaselineSourceStore marks a baseline measured for the store itself
	BaselineSourceStore = "store"
	// BaselineSourceGroup marks a baseline estimated from the store's cluster group
	BaselineSourceGroup = "store_group"
)

// Baseline is the historical units-sold reference for a store/category pair
// over a period of PeriodDays days.
type Baseline struct {
	UnitsSold  float64
	PeriodDays int
	Source     string
}

// SalesRate returns the historical units sold per day. The second return
// value is false when the baseline period is unusable.
func (b Baseline) SalesRate() (float64, bool) {
	if b.PeriodDays <= 0 {
		return 0, false
	}

	return b.UnitsSold / float64(b.PeriodDays), true
}

// BaselineLookup supplies historical baselines keyed by store and category.
// Implementations must report absence via found=false, never via a zero
// Baseline.
type BaselineLookup interface {
	Lookup(ctx context.Context, storeID, categoryKey string) (baseline Baseline, found bool, err error)
}

// ReasonCode enumerates the machine-readable validation outcomes.
type ReasonCode string

const (
	// ReasonApproved means the change maintains or improves sell-through
	ReasonApproved ReasonCode = "approved"
	// ReasonApprovedNewItem means an ADD_NEW style increase from zero stock was approved
	ReasonApprovedNewItem ReasonCode = "approved_new_item"
	// ReasonApprovedDiscontinuation means a decrease to zero stock was approved
	ReasonApprovedDiscontinuation ReasonCode = "approved_discontinuation"
	// ReasonBelowMinimum means projected sell-through is under the minimum threshold
	ReasonBelowMinimum ReasonCode = "rejected_below_minimum"
	// ReasonDegradation means the increase degrades sell-through beyond tolerance
	ReasonDegradation ReasonCode = "rejected_degradation"
	// ReasonDecreaseDegrades means the decrease would make sell-through worse
	ReasonDecreaseDegrades ReasonCode = "rejected_decrease_degrades"
	// ReasonDiscontinuationAboveMinimum means a decrease to zero was rejected
	// because current sell-through is still above the minimum threshold
	ReasonDiscontinuationAboveMinimum ReasonCode = "rejected_discontinuation_above_minimum"
	// ReasonMissingFields means a required quantity field is missing
	ReasonMissingFields ReasonCode = "skipped_missing_fields"
	// ReasonMissingBaseline means no historical baseline was found
	ReasonMissingBaseline ReasonCode = "skipped_missing_baseline"
)

// Skipped reports whether the reason is a data-quality skip rather than a
// business accept/reject outcome.
func (r ReasonCode) Skipped() bool {
	return r == ReasonMissingFields || r == ReasonMissingBaseline
}

// Result is the validation outcome attached to a recommendation. Percentage
// fields are pointers because both sides of the comparison can be undefined
// (zero current stock, full discontinuation, missing data).
type Result struct {
	// CurrentPct is the estimated sell-through rate at the current quantity (0-100)
	CurrentPct *float64
	// ProjectedPct is the estimated sell-through rate at the proposed quantity (0-100)
	ProjectedPct *float64
	// ImprovementPP is ProjectedPct minus CurrentPct in percentage points
	ImprovementPP *float64
	// Approve is the gating decision
	Approve bool
	// Reason is the machine-readable outcome
	Reason ReasonCode
	// Rationale is the human-readable explanation, naming the specific
	// threshold, tolerance, or missing field that drove the decision
	Rationale string
}

// Status returns a short status label for reporting.
func (r Result) Status() string {
	switch {
	case r.Approve:
		return "approved"
	case r.Reason.Skipped():
		return "skipped"
	default:
		return "rejected"
	}
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func fmtPP(v float64) string {
	return fmt.Sprintf("%+.1fpp", v)
}
