package sellthrough_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// mapLookup is an in-memory BaselineLookup keyed by store|category.
type mapLookup struct {
	baselines map[string]sellthrough.Baseline
	failures  map[string]error
	calls     int
}

func (m *mapLookup) Lookup(_ context.Context, storeID, categoryKey string) (sellthrough.Baseline, bool, error) {
	m.calls++

	key := storeID + "|" + categoryKey
	if err, ok := m.failures[key]; ok {
		return sellthrough.Baseline{}, false, err
	}

	b, ok := m.baselines[key]

	return b, ok, nil
}

func newBatchRunner(t *testing.T) *sellthrough.BatchRunner {
	t.Helper()

	return sellthrough.NewBatchRunner(logrus.New(), newValidator(t))
}

func TestBatchRunner_DedupMatchesIndividualCalls(t *testing.T) {
	runner := newBatchRunner(t)
	v := newValidator(t)

	lookup := &mapLookup{baselines: map[string]sellthrough.Baseline{
		"s1|dairy|milk":  baselineFor(9),
		"s2|dairy|milk":  baselineFor(3),
		"s1|frozen|peas": baselineFor(6),
	}}

	recs := []sellthrough.Recommendation{
		{StoreID: "s1", CategoryKey: "dairy|milk", Rule: "missed_sales", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(10), ProposedQuantity: intPtr(15)},
		{StoreID: "s2", CategoryKey: "dairy|milk", Rule: "missed_sales", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(10), ProposedQuantity: intPtr(15)},
		// Same key as row 0, proposed by a different rule.
		{StoreID: "s1", CategoryKey: "dairy|milk", Rule: "sales_performance", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(10), ProposedQuantity: intPtr(15)},
		{StoreID: "s1", CategoryKey: "frozen|peas", Rule: "overcapacity", Action: sellthrough.ActionDecrease, CurrentQuantity: intPtr(30), ProposedQuantity: intPtr(12)},
	}

	results, stats, err := runner.ValidateBatch(context.Background(), recs, lookup)
	require.NoError(t, err)
	require.Len(t, results, len(recs))

	// Rows sharing a dedup key receive the identical result.
	assert.Equal(t, results[0], results[2])

	// The batch equals calling the validator individually on every row.
	for i, rec := range recs {
		baseline, found, lookupErr := lookup.Lookup(context.Background(), rec.StoreID, rec.CategoryKey)
		require.NoError(t, lookupErr)

		want, validateErr := v.Validate(rec, baseline, found)
		require.NoError(t, validateErr)
		assert.Equal(t, want, results[i], "row %d", i)
	}

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Unique)
	assert.Equal(t, stats.Total, stats.Approved+stats.Rejected+stats.Skipped)
}

func TestBatchRunner_LookupFailureIsolatedPerKey(t *testing.T) {
	runner := newBatchRunner(t)

	lookup := &mapLookup{
		baselines: map[string]sellthrough.Baseline{
			"s1|dairy|milk": baselineFor(9),
		},
		failures: map[string]error{
			"s2|dairy|milk": errors.New("baseline table unavailable"),
		},
	}

	recs := []sellthrough.Recommendation{
		{StoreID: "s1", CategoryKey: "dairy|milk", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(10), ProposedQuantity: intPtr(11)},
		{StoreID: "s2", CategoryKey: "dairy|milk", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(10), ProposedQuantity: intPtr(11)},
	}

	results, stats, err := runner.ValidateBatch(context.Background(), recs, lookup)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The failing key degrades to a missing-baseline skip.
	assert.Equal(t, sellthrough.ReasonMissingBaseline, results[1].Reason)
	assert.Equal(t, "skipped", results[1].Status())

	// The healthy key still processes.
	assert.True(t, results[0].Approve)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Skipped)
}

func TestBatchRunner_MissingQuantitiesDedupeConsistently(t *testing.T) {
	runner := newBatchRunner(t)

	lookup := &mapLookup{baselines: map[string]sellthrough.Baseline{
		"s1|bakery|rolls": baselineFor(5),
	}}

	// Two unsized candidates for the same pair share a key and one
	// validator invocation.
	recs := []sellthrough.Recommendation{
		{StoreID: "s1", CategoryKey: "bakery|rolls", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(0)},
		{StoreID: "s1", CategoryKey: "bakery|rolls", Action: sellthrough.ActionIncrease, CurrentQuantity: intPtr(0)},
	}

	results, stats, err := runner.ValidateBatch(context.Background(), recs, lookup)
	require.NoError(t, err)

	assert.Equal(t, results[0], results[1])
	assert.Equal(t, sellthrough.ReasonMissingFields, results[0].Reason)
	assert.Equal(t, 1, stats.Unique)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, lookup.calls)
}

func TestBatchRunner_ContractViolationAbortsBatch(t *testing.T) {
	runner := newBatchRunner(t)

	lookup := &mapLookup{baselines: map[string]sellthrough.Baseline{}}

	recs := []sellthrough.Recommendation{
		{StoreID: "s1", CategoryKey: "dairy|milk", Action: "REMOVE", CurrentQuantity: intPtr(1), ProposedQuantity: intPtr(2)},
	}

	_, _, err := runner.ValidateBatch(context.Background(), recs, lookup)
	require.ErrorIs(t, err, sellthrough.ErrUnknownAction)
}

func TestBatchRunner_EmptyBatch(t *testing.T) {
	runner := newBatchRunner(t)

	results, stats, err := runner.ValidateBatch(context.Background(), nil, &mapLookup{})
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Unique)
}
