package sellthrough

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/observability"
)

// BatchStats aggregates the outcomes of one batch validation for
// observability and reporting. Rule steps must surface these counts; a batch
// with silent skips is an audit failure.
type BatchStats struct {
	Total    int
	Unique   int
	Approved int
	Rejected int
	Skipped  int
	ByReason map[ReasonCode]int
}

// BatchRunner applies the validator across a table of candidate
// recommendations, running the decision once per unique
// (store, category, current, proposed) combination and broadcasting the
// result back to every row sharing that key. Deduplication is purely a
// performance optimization: the validator is a pure function of exactly
// those four values plus the baseline, which is keyed by store/category.
type BatchRunner struct {
	log       logrus.FieldLogger
	validator *Validator
}

// NewBatchRunner creates a batch runner around the given validator.
func NewBatchRunner(log logrus.FieldLogger, validator *Validator) *BatchRunner {
	return &BatchRunner{
		log:       log.WithField("service", "sellthrough-batch"),
		validator: validator,
	}
}

// ValidateBatch validates every recommendation and returns results aligned
// with the input slice. Rows are never dropped: rejection and skipping are
// signaled on the result, and filtering is the caller's responsibility.
//
// A baseline lookup failure for one key is isolated to that key, which
// receives a missing-baseline skip; other keys keep processing.
func (b *BatchRunner) ValidateBatch(ctx context.Context, recs []Recommendation, baselines BaselineLookup) ([]Result, BatchStats, error) {
	start := time.Now()

	stats := BatchStats{
		Total:    len(recs),
		ByReason: make(map[ReasonCode]int),
	}

	// Key -> result map in first-seen order.
	byKey := make(map[Key]Result, len(recs))
	order := make([]Key, 0, len(recs))

	for _, rec := range recs {
		key := rec.DedupKey()
		if _, seen := byKey[key]; seen {
			continue
		}

		res, err := b.validateOne(ctx, rec, baselines)
		if err != nil {
			return nil, BatchStats{}, fmt.Errorf("validate %s/%s: %w", rec.StoreID, rec.CategoryKey, err)
		}

		byKey[key] = res
		order = append(order, key)
	}

	stats.Unique = len(order)

	// Broadcast back onto every original row.
	results := make([]Result, len(recs))
	for i, rec := range recs {
		res := byKey[rec.DedupKey()]
		results[i] = res

		stats.ByReason[res.Reason]++
		switch {
		case res.Approve:
			stats.Approved++
		case res.Reason.Skipped():
			stats.Skipped++
		default:
			stats.Rejected++
		}

		observability.RecordValidationResult(rec.Rule, res.Status())
	}

	observability.ObserveBatchValidation(time.Since(start).Seconds())

	b.log.WithFields(logrus.Fields{
		"total":    stats.Total,
		"unique":   stats.Unique,
		"approved": stats.Approved,
		"rejected": stats.Rejected,
		"skipped":  stats.Skipped,
	}).Info("Validated recommendation batch")

	return results, stats, nil
}

// validateOne resolves the baseline for a recommendation and runs the
// single-case validator. Lookup errors degrade to a missing baseline.
func (b *BatchRunner) validateOne(ctx context.Context, rec Recommendation, baselines BaselineLookup) (Result, error) {
	baseline, found, err := baselines.Lookup(ctx, rec.StoreID, rec.CategoryKey)
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"store_id":     rec.StoreID,
			"category_key": rec.CategoryKey,
		}).Warn("Baseline lookup failed, treating as missing baseline")

		found = false
		baseline = Baseline{}
	}

	return b.validator.Validate(rec, baseline, found)
}
