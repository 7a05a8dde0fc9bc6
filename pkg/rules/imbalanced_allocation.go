package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// ImbalancedAllocationConfig configures the imbalanced-allocation rule.
type ImbalancedAllocationConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// DeviationPP is how many percentage points a store's stock share of a
	// category may deviate from the group average before it counts as
	// imbalanced
	DeviationPP float64 `yaml:"deviationPP" default:"15"`
}

// imbalancedAllocationRule compares a store's stock share per category with
// its group's average share and proposes moving the allocation toward the
// group average.
type imbalancedAllocationRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *imbalancedAllocationRule) Name() string { return "imbalanced_allocation" }

func (r *imbalancedAllocationRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, groups *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	for _, members := range groups.Groups() {
		if len(members) < 2 {
			continue
		}

		groupShares := r.groupAverageShares(snapshot, members)

		for _, storeID := range members {
			total := storeStockTotal(snapshot, storeID)
			if total == 0 {
				continue
			}

			for _, rec := range snapshot.StoreRecords(storeID) {
				if rec.UnitsInStock == nil {
					continue
				}

				share := 100 * float64(*rec.UnitsInStock) / float64(total)
				avg, ok := groupShares[rec.CategoryKey]
				if !ok {
					continue
				}

				deviation := share - avg
				if deviation < r.cfg.ImbalancedAllocation.DeviationPP && deviation > -r.cfg.ImbalancedAllocation.DeviationPP {
					continue
				}

				proposed := clampUnits(roundUnits(avg/100*float64(total)), r.cfg.MaxUnitsPerPeriod)
				if proposed == *rec.UnitsInStock {
					continue
				}

				action := sellthrough.ActionIncrease
				if proposed < *rec.UnitsInStock {
					action = sellthrough.ActionDecrease
				}

				r.log.WithFields(logrus.Fields{
					"store_id":     storeID,
					"category_key": rec.CategoryKey,
					"share_pct":    share,
					"group_avg":    avg,
				}).Debug("Imbalanced allocation candidate")

				recs = emit(recs, sellthrough.Recommendation{
					StoreID:          storeID,
					CategoryKey:      rec.CategoryKey,
					Rule:             r.Name(),
					Action:           action,
					CurrentQuantity:  rec.UnitsInStock,
					ProposedQuantity: intPtr(proposed),
				})
			}
		}
	}

	return recs, nil
}

// groupAverageShares returns the average stock share (0-100) per category
// across the group's stores with known stock.
func (r *imbalancedAllocationRule) groupAverageShares(snapshot *ingest.Snapshot, members []string) map[string]float64 {
	sums := make(map[string]float64)
	counts := 0

	for _, storeID := range members {
		total := storeStockTotal(snapshot, storeID)
		if total == 0 {
			continue
		}
		counts++

		for _, rec := range snapshot.StoreRecords(storeID) {
			if rec.UnitsInStock != nil {
				sums[rec.CategoryKey] += 100 * float64(*rec.UnitsInStock) / float64(total)
			}
		}
	}

	shares := make(map[string]float64, len(sums))
	for key, sum := range sums {
		if counts > 0 {
			shares[key] = sum / float64(counts)
		}
	}

	return shares
}

func storeStockTotal(snapshot *ingest.Snapshot, storeID string) int {
	total := 0
	for _, rec := range snapshot.StoreRecords(storeID) {
		if rec.UnitsInStock != nil {
			total += *rec.UnitsInStock
		}
	}

	return total
}
