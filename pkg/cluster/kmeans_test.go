package cluster

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/shelfwise/pkg/ingest"
)

// snapshotWith builds a snapshot where each store's revenue is split across
// two categories with the given shares.
func snapshotWith(t *testing.T, shares map[string][2]float64) *ingest.Snapshot {
	t.Helper()

	var records []ingest.SalesRecord
	for storeID, s := range shares {
		records = append(records,
			ingest.SalesRecord{StoreID: storeID, CategoryKey: "fresh", Revenue: s[0] * 1000},
			ingest.SalesRecord{StoreID: storeID, CategoryKey: "frozen", Revenue: s[1] * 1000},
		)
	}

	return ingest.NewSnapshot(records, ingest.Stats{})
}

func TestClusterer_GroupsByMixShape(t *testing.T) {
	// Two obvious mix shapes: fresh-heavy and frozen-heavy.
	snapshot := snapshotWith(t, map[string][2]float64{
		"fresh-1":  {0.9, 0.1},
		"fresh-2":  {0.85, 0.15},
		"frozen-1": {0.1, 0.9},
		"frozen-2": {0.15, 0.85},
	})

	clusterer, err := New(logrus.New(), &Config{K: 2, MaxIterations: 50, Seed: 1})
	require.NoError(t, err)

	assignment, err := clusterer.Cluster(snapshot)
	require.NoError(t, err)

	freshGroup, ok := assignment.GroupKey("fresh-1")
	require.True(t, ok)
	frozenGroup, ok := assignment.GroupKey("frozen-1")
	require.True(t, ok)

	assert.NotEqual(t, freshGroup, frozenGroup)

	g, ok := assignment.GroupKey("fresh-2")
	require.True(t, ok)
	assert.Equal(t, freshGroup, g)

	g, ok = assignment.GroupKey("frozen-2")
	require.True(t, ok)
	assert.Equal(t, frozenGroup, g)

	// Every store is assigned and groups partition the stores.
	total := 0
	for _, members := range assignment.Groups() {
		total += len(members)
	}
	assert.Equal(t, 4, total)
}

func TestClusterer_DeterministicForFixedSeed(t *testing.T) {
	snapshot := snapshotWith(t, map[string][2]float64{
		"s1": {0.9, 0.1},
		"s2": {0.2, 0.8},
		"s3": {0.5, 0.5},
		"s4": {0.7, 0.3},
		"s5": {0.1, 0.9},
	})

	clusterer, err := New(logrus.New(), &Config{K: 3, MaxIterations: 50, Seed: 42})
	require.NoError(t, err)

	first, err := clusterer.Cluster(snapshot)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, clusterErr := clusterer.Cluster(snapshot)
		require.NoError(t, clusterErr)
		assert.Equal(t, first.Groups(), again.Groups())
	}
}

func TestClusterer_KClampsToStoreCount(t *testing.T) {
	snapshot := snapshotWith(t, map[string][2]float64{
		"s1": {0.9, 0.1},
		"s2": {0.1, 0.9},
	})

	clusterer, err := New(logrus.New(), &Config{K: 10, MaxIterations: 50, Seed: 1})
	require.NoError(t, err)

	assignment, err := clusterer.Cluster(snapshot)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(assignment.Groups()), 2)

	_, ok := assignment.GroupKey("s1")
	assert.True(t, ok)
	_, ok = assignment.GroupKey("s2")
	assert.True(t, ok)
}

func TestClusterer_EmptySnapshot(t *testing.T) {
	clusterer, err := New(logrus.New(), &Config{K: 4, MaxIterations: 50, Seed: 1})
	require.NoError(t, err)

	assignment, err := clusterer.Cluster(ingest.NewSnapshot(nil, ingest.Stats{}))
	require.NoError(t, err)

	assert.Empty(t, assignment.Groups())
}

func TestConfig_Validate(t *testing.T) {
	require.ErrorIs(t, (&Config{K: 0, MaxIterations: 10}).Validate(), ErrInvalidK)
	require.ErrorIs(t, (&Config{K: 2, MaxIterations: 0}).Validate(), ErrInvalidIterations)
	require.NoError(t, (&Config{K: 2, MaxIterations: 10}).Validate())
}
