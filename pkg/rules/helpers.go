package rules

import (
	"math"
	"sort"

	"github.com/retailops/shelfwise/pkg/observability"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

func intPtr(v int) *int {
	return &v
}

// clampUnits bounds a proposed quantity to [0, max].
func clampUnits(v, max int) int {
	switch {
	case v < 0:
		return 0
	case v > max:
		return max
	default:
		return v
	}
}

// median returns the median of a non-empty slice.
func median(values []int) int {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}

func roundUnits(v float64) int {
	return int(math.Round(v))
}

func ceilUnits(v float64) int {
	return int(math.Ceil(v))
}

// emit records the metric for a candidate and appends it.
func emit(recs []sellthrough.Recommendation, rec sellthrough.Recommendation) []sellthrough.Recommendation {
	observability.RecordRecommendation(rec.Rule, string(rec.Action))
	return append(recs, rec)
}
