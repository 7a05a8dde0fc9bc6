package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestWriter_Write(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	writer, err := NewWriter(logrus.New(), &Config{OutDir: outDir})
	require.NoError(t, err)

	candidates := []sellthrough.Recommendation{
		{
			StoreID:          "s1",
			CategoryKey:      "dairy|milk",
			Rule:             "missed_sales",
			Action:           sellthrough.ActionIncrease,
			CurrentQuantity:  intPtr(10),
			ProposedQuantity: intPtr(15),
		},
		{
			StoreID:         "s2",
			CategoryKey:     "bakery|rolls",
			Rule:            "missing_category",
			Action:          sellthrough.ActionIncrease,
			CurrentQuantity: intPtr(0),
			// Unsized candidate: proposed stays missing.
		},
	}
	results := []sellthrough.Result{
		{
			CurrentPct:    floatPtr(90),
			ProjectedPct:  floatPtr(60),
			ImprovementPP: floatPtr(-30),
			Approve:       false,
			Reason:        sellthrough.ReasonDegradation,
			Rationale:     "rejected: sell-through degrades by -30.0pp, tolerance is -10.0pp",
		},
		{
			Approve:   false,
			Reason:    sellthrough.ReasonMissingFields,
			Rationale: "skipped: missing required quantity fields",
		},
	}
	stats := sellthrough.BatchStats{
		Total:    2,
		Unique:   2,
		Rejected: 1,
		Skipped:  1,
		ByReason: map[sellthrough.ReasonCode]int{
			sellthrough.ReasonDegradation:   1,
			sellthrough.ReasonMissingFields: 1,
		},
	}

	require.NoError(t, writer.Write("run-1", candidates, results, stats))

	f, err := os.Open(filepath.Join(outDir, "recommendations.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "store_id", header[0])
	assert.Equal(t, "rationale", header[len(header)-1])

	// Every candidate row appears, including the skipped one.
	assert.Equal(t, "s1", rows[1][0])
	assert.Equal(t, "rejected", rows[1][9])

	// Missing values render as empty cells, never fabricated zeroes.
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "skipped", rows[2][9])

	summary, err := os.ReadFile(filepath.Join(outDir, "summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "run-1")
	assert.Contains(t, string(summary), "missed_sales")
}

func TestWriter_ResultMismatch(t *testing.T) {
	writer, err := NewWriter(logrus.New(), &Config{OutDir: t.TempDir()})
	require.NoError(t, err)

	err = writer.Write("run-1", make([]sellthrough.Recommendation, 2), make([]sellthrough.Result, 1), sellthrough.BatchStats{})
	require.ErrorIs(t, err, ErrResultMismatch)
}

func TestConfig_Validate(t *testing.T) {
	require.Error(t, (&Config{}).Validate())
	require.NoError(t, (&Config{OutDir: "out"}).Validate())
}
