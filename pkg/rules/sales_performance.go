package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// SalesPerformanceConfig configures the sales-performance rule.
type SalesPerformanceConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// OutperformRatio flags a store selling this multiple of its group's
	// average units for a category
	OutperformRatio float64 `yaml:"outperformRatio" default:"1.5"`

	// StepShare sizes the adjustment as this share of current stock
	StepShare float64 `yaml:"stepShare" default:"0.25"`
}

// salesPerformanceRule compares a store's category sales with the group
// average and proposes growing the allocation where the store clearly
// outsells its peers.
type salesPerformanceRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *salesPerformanceRule) Name() string { return "sales_performance" }

func (r *salesPerformanceRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, groups *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	cfg := r.cfg.SalesPerformance

	for _, members := range groups.Groups() {
		if len(members) < 2 {
			continue
		}

		averages := r.groupAverageSales(snapshot, members)

		for _, storeID := range members {
			for _, rec := range snapshot.StoreRecords(storeID) {
				if rec.UnitsInStock == nil || *rec.UnitsInStock == 0 {
					continue
				}

				avg, ok := averages[rec.CategoryKey]
				if !ok || avg <= 0 {
					continue
				}

				if rec.UnitsSold < avg*cfg.OutperformRatio {
					continue
				}

				step := ceilUnits(float64(*rec.UnitsInStock) * cfg.StepShare)
				if step < 1 {
					step = 1
				}

				proposed := clampUnits(*rec.UnitsInStock+step, r.cfg.MaxUnitsPerPeriod)
				if proposed <= *rec.UnitsInStock {
					continue
				}

				r.log.WithFields(logrus.Fields{
					"store_id":     storeID,
					"category_key": rec.CategoryKey,
					"units_sold":   rec.UnitsSold,
					"group_avg":    avg,
				}).Debug("Sales performance candidate")

				recs = emit(recs, sellthrough.Recommendation{
					StoreID:          storeID,
					CategoryKey:      rec.CategoryKey,
					Rule:             r.Name(),
					Action:           sellthrough.ActionIncrease,
					CurrentQuantity:  rec.UnitsInStock,
					ProposedQuantity: intPtr(proposed),
				})
			}
		}
	}

	return recs, nil
}

// groupAverageSales returns average units sold per category across the group.
func (r *salesPerformanceRule) groupAverageSales(snapshot *ingest.Snapshot, members []string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, storeID := range members {
		for _, rec := range snapshot.StoreRecords(storeID) {
			sums[rec.CategoryKey] += rec.UnitsSold
			counts[rec.CategoryKey]++
		}
	}

	averages := make(map[string]float64, len(sums))
	for key, sum := range sums {
		averages[key] = sum / float64(counts[key])
	}

	return averages
}
