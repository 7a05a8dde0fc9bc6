package baseline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/observability"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

var (
	// ErrMissingColumn is returned when the baselines file lacks a required column
	ErrMissingColumn = errors.New("baseline file missing required column")
)

// Required columns of the baselines file. store_key holds either a store ID
// or a store-group key; the two namespaces share one table.
const (
	colStoreKey    = "store_key"
	colCategoryKey = "category_key"
	colUnitsSold   = "units_sold"
	colPeriodDays  = "period_days"
)

type baselineKey struct {
	storeKey    string
	categoryKey string
}

// CSVProvider serves baselines from an in-memory table loaded once from a
// CSV file. Malformed rows are counted and logged, never zero-filled.
type CSVProvider struct {
	log       logrus.FieldLogger
	baselines map[baselineKey]sellthrough.Baseline

	// Rows dropped during load, kept for the run report.
	Malformed int
}

// NewCSVProvider loads the baselines file at path. A missing or unreadable
// file is a batch-level failure surfaced immediately, not a silent all-skip.
func NewCSVProvider(log logrus.FieldLogger, path string) (*CSVProvider, error) {
	f, err := os.Open(path) //nolint:gosec // Operator-provided data file path
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoBaselineData, path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	p := &CSVProvider{
		log:       log.WithField("service", "baseline-csv"),
		baselines: make(map[baselineKey]sellthrough.Baseline),
	}

	if err := p.load(csv.NewReader(f)); err != nil {
		return nil, fmt.Errorf("load baselines from %s: %w", path, err)
	}

	p.log.WithFields(logrus.Fields{
		"path":      path,
		"entries":   len(p.baselines),
		"malformed": p.Malformed,
	}).Info("Loaded baseline table")

	return p, nil
}

func (p *CSVProvider) load(r *csv.Reader) error {
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	for _, required := range []string{colStoreKey, colCategoryKey, colUnitsSold, colPeriodDays} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			// Row-level parse errors are isolated.
			p.Malformed++
			continue
		}

		key, b, ok := p.parseRow(record, cols)
		if !ok {
			p.Malformed++
			continue
		}

		p.baselines[key] = b
	}
}

func (p *CSVProvider) parseRow(record []string, cols map[string]int) (baselineKey, sellthrough.Baseline, bool) {
	get := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	storeKey := get(colStoreKey)
	categoryKey := get(colCategoryKey)
	if storeKey == "" || categoryKey == "" {
		return baselineKey{}, sellthrough.Baseline{}, false
	}

	unitsSold, err := strconv.ParseFloat(get(colUnitsSold), 64)
	if err != nil || unitsSold < 0 {
		p.log.WithFields(logrus.Fields{
			"store_key":    storeKey,
			"category_key": categoryKey,
			"units_sold":   get(colUnitsSold),
		}).Warn("Dropping baseline row with unusable units_sold")
		return baselineKey{}, sellthrough.Baseline{}, false
	}

	periodDays, err := strconv.Atoi(get(colPeriodDays))
	if err != nil || periodDays <= 0 {
		p.log.WithFields(logrus.Fields{
			"store_key":    storeKey,
			"category_key": categoryKey,
			"period_days":  get(colPeriodDays),
		}).Warn("Dropping baseline row with unusable period_days")
		return baselineKey{}, sellthrough.Baseline{}, false
	}

	return baselineKey{storeKey: storeKey, categoryKey: categoryKey}, sellthrough.Baseline{
		UnitsSold:  unitsSold,
		PeriodDays: periodDays,
		Source:     sellthrough.BaselineSourceStore,
	}, true
}

// Len returns the number of loaded baseline entries.
func (p *CSVProvider) Len() int {
	return len(p.baselines)
}

// Lookup implements Provider.
func (p *CSVProvider) Lookup(_ context.Context, storeID, categoryKey string) (sellthrough.Baseline, bool, error) {
	b, found := p.baselines[baselineKey{storeKey: storeID, categoryKey: categoryKey}]
	if found {
		observability.RecordBaselineLookup("hit")
	} else {
		observability.RecordBaselineLookup("miss")
	}

	return b, found, nil
}

var _ Provider = (*CSVProvider)(nil)
