package rules

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// MissingCategoryConfig configures the missing-category rule.
type MissingCategoryConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// PeerCoverage is the share of group peers that must carry a category
	// before its absence in a store counts as missing
	PeerCoverage float64 `yaml:"peerCoverage" default:"0.8"`
}

// missingCategoryRule flags categories a store does not carry although most
// of its group peers do, proposing an ADD_NEW sized from the peers' median
// stock. When no peer stock is known the candidate is emitted unsized so the
// gate skips it on record.
type missingCategoryRule struct {
	log logrus.FieldLogger
	cfg *Config
}

func (r *missingCategoryRule) Name() string { return "missing_category" }

func (r *missingCategoryRule) Evaluate(_ context.Context, snapshot *ingest.Snapshot, groups *cluster.Assignment) ([]sellthrough.Recommendation, error) {
	var recs []sellthrough.Recommendation

	for groupKey, members := range groups.Groups() {
		if len(members) < 2 {
			continue
		}

		for _, categoryKey := range snapshot.Categories() {
			carriers, peerStocks := r.groupCarriers(snapshot, members, categoryKey)

			coverage := float64(len(carriers)) / float64(len(members))
			if coverage < r.cfg.MissingCategory.PeerCoverage {
				continue
			}

			for _, storeID := range members {
				if _, carries := snapshot.Record(storeID, categoryKey); carries {
					continue
				}

				rec := sellthrough.Recommendation{
					StoreID:         storeID,
					CategoryKey:     categoryKey,
					Rule:            r.Name(),
					Action:          sellthrough.ActionIncrease,
					CurrentQuantity: intPtr(0),
				}

				if len(peerStocks) > 0 {
					proposed := clampUnits(median(peerStocks), r.cfg.MaxUnitsPerPeriod)
					if proposed > 0 {
						rec.ProposedQuantity = intPtr(proposed)
					}
				}

				r.log.WithFields(logrus.Fields{
					"store_id":     storeID,
					"category_key": categoryKey,
					"group":        groupKey,
					"sized":        rec.ProposedQuantity != nil,
				}).Debug("Missing category candidate")

				recs = emit(recs, rec)
			}
		}
	}

	return recs, nil
}

// groupCarriers returns the members that carry the category and their known
// stock counts.
func (r *missingCategoryRule) groupCarriers(snapshot *ingest.Snapshot, members []string, categoryKey string) (carriers []string, stocks []int) {
	for _, storeID := range members {
		rec, ok := snapshot.Record(storeID, categoryKey)
		if !ok {
			continue
		}

		carriers = append(carriers, storeID)
		if rec.UnitsInStock != nil && *rec.UnitsInStock > 0 {
			stocks = append(stocks, *rec.UnitsInStock)
		}
	}

	return carriers, stocks
}
