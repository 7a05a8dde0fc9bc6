package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// OvercapacityConfig configures the overcapacity rule.
type OvercapacityConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// CoverFactor flags stock above this multiple of period sales
	CoverFactor float64 `yaml:"coverFactor" default:"4"`

	// TargetCoverFactor sizes the reduced allocation as this multiple of
	// period sales
	TargetCoverFactor float64 `yaml:"targetCoverFactor" default:"2"`
}

// overcapacityRule flags allocations holding far more stock than the period
// sold and proposes reducing toward a target cover.
type overcapacityRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *overcapacityRule) Name() string { return "overcapacity" }

func (r *overcapacityRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, _ *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	cfg := r.cfg.Overcapacity

	for _, rec := range snapshot.Records() {
		if rec.UnitsInStock == nil || *rec.UnitsInStock == 0 {
			continue
		}

		stock := float64(*rec.UnitsInStock)
		if stock <= rec.UnitsSold*cfg.CoverFactor {
			continue
		}

		proposed := ceilUnits(rec.UnitsSold * cfg.TargetCoverFactor)
		proposed = clampUnits(proposed, r.cfg.MaxUnitsPerPeriod)
		if proposed >= *rec.UnitsInStock {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"store_id":     rec.StoreID,
			"category_key": rec.CategoryKey,
			"stock":        *rec.UnitsInStock,
			"units_sold":   rec.UnitsSold,
			"proposed":     proposed,
		}).Debug("Overcapacity candidate")

		recs = emit(recs, sellthrough.Recommendation{
			StoreID:          rec.StoreID,
			CategoryKey:      rec.CategoryKey,
			Rule:             r.Name(),
			Action:           sellthrough.ActionDecrease,
			CurrentQuantity:  rec.UnitsInStock,
			ProposedQuantity: intPtr(proposed),
		})
	}

	return recs, nil
}
