package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// BelowMinimumConfig configures the below-minimum rule.
type BelowMinimumConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// MinUnits is the minimum viable presentation quantity for a category
	// that is actively selling
	MinUnits int `yaml:"minUnits" default:"3"`
}

// belowMinimumRule flags store/category pairs stocked below the minimum
// presentation quantity while still selling, proposing a top-up to the
// minimum.
type belowMinimumRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *belowMinimumRule) Name() string { return "below_minimum" }

func (r *belowMinimumRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, _ *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	minUnits := r.cfg.BelowMinimum.MinUnits

	for _, rec := range snapshot.Records() {
		if rec.UnitsInStock == nil || rec.UnitsSold <= 0 {
			continue
		}

		if *rec.UnitsInStock >= minUnits {
			continue
		}

		proposed := clampUnits(minUnits, r.cfg.MaxUnitsPerPeriod)
		if proposed <= *rec.UnitsInStock {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"store_id":     rec.StoreID,
			"category_key": rec.CategoryKey,
			"stock":        *rec.UnitsInStock,
		}).Debug("Below minimum candidate")

		recs = emit(recs, sellthrough.Recommendation{
			StoreID:          rec.StoreID,
			CategoryKey:      rec.CategoryKey,
			Rule:             r.Name(),
			Action:           sellthrough.ActionIncrease,
			CurrentQuantity:  rec.UnitsInStock,
			ProposedQuantity: intPtr(proposed),
		})
	}

	return recs, nil
}
