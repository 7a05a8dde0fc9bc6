package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// MissedSalesConfig configures the missed-sales rule.
type MissedSalesConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// SellOutRatio flags allocations where period sales reached this share
	// of stock, suggesting demand outran supply
	SellOutRatio float64 `yaml:"sellOutRatio" default:"0.9"`

	// RestockFactor sizes the increased allocation as this multiple of
	// current stock
	RestockFactor float64 `yaml:"restockFactor" default:"1.5"`
}

// missedSalesRule flags near-sold-out allocations, where the period's demand
// likely exceeded what was on the shelf, and proposes a larger allocation.
type missedSalesRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *missedSalesRule) Name() string { return "missed_sales" }

func (r *missedSalesRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, _ *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	cfg := r.cfg.MissedSales

	for _, rec := range snapshot.Records() {
		if rec.UnitsInStock == nil || *rec.UnitsInStock == 0 {
			continue
		}

		stock := float64(*rec.UnitsInStock)
		if rec.UnitsSold < stock*cfg.SellOutRatio {
			continue
		}

		proposed := clampUnits(ceilUnits(stock*cfg.RestockFactor), r.cfg.MaxUnitsPerPeriod)
		if proposed <= *rec.UnitsInStock {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"store_id":     rec.StoreID,
			"category_key": rec.CategoryKey,
			"stock":        *rec.UnitsInStock,
			"units_sold":   rec.UnitsSold,
			"proposed":     proposed,
		}).Debug("Missed sales candidate")

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
