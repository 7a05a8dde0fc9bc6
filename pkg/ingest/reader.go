package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/observability"
)

var (
	// ErrMissingColumn is returned when the sales file lacks a required column
	ErrMissingColumn = errors.New("sales file missing required column")
)

const (
	colStoreID      = "store_id"
	colCategoryKey  = "category_key"
	colUnitsSold    = "units_sold"
	colUnitsInStock = "units_in_stock"
	colRevenue      = "revenue"
)

// Config holds ingestion settings.
type Config struct {
	// SalesPath is the per-store sales CSV for the reporting period
	SalesPath string `yaml:"salesPath" default:"data/sales.csv"`

	// BaselinesPath is the historical baselines CSV
	BaselinesPath string `yaml:"baselinesPath" default:"data/baselines.csv"`

	// MaxUnitsPerPeriod is the sanity clamp for unit counts, per 15-day period
	MaxUnitsPerPeriod int `yaml:"maxUnitsPerPeriod" default:"100"`
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.SalesPath == "" {
		return errors.New("sales path is required")
	}

	if c.BaselinesPath == "" {
		return errors.New("baselines path is required")
	}

	if c.MaxUnitsPerPeriod <= 0 {
		return errors.New("max units per period must be positive")
	}

	return nil
}

// Reader loads sales CSVs into snapshots.
type Reader struct {
	log logrus.FieldLogger
	cfg *Config
}

// NewReader creates a sales reader.
func NewReader(log logrus.FieldLogger, cfg *Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest config: %w", err)
	}

	return &Reader{
		log: log.WithField("service", "ingest"),
		cfg: cfg,
	}, nil
}

// Load reads the configured sales file into a snapshot. Row-level problems
// are isolated and counted; a missing file fails the step.
func (r *Reader) Load() (*Snapshot, error) {
	f, err := os.Open(r.cfg.SalesPath) //nolint:gosec // Operator-provided data file path
	if err != nil {
		return nil, fmt.Errorf("open sales file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	snapshot, err := r.read(csv.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read sales file %s: %w", r.cfg.SalesPath, err)
	}

	stats := snapshot.Stats()
	r.log.WithFields(logrus.Fields{
		"path":          r.cfg.SalesPath,
		"rows":          stats.Rows,
		"accepted":      stats.Accepted,
		"clamped":       stats.Clamped,
		"malformed":     stats.Malformed,
		"missing_stock": stats.MissingStock,
	}).Info("Loaded sales snapshot")

	return snapshot, nil
}

func (r *Reader) read(cr *csv.Reader) (*Snapshot, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	for _, required := range []string{colStoreID, colCategoryKey, colUnitsSold, colRevenue} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	// units_in_stock is optional per file: some extracts omit it entirely.
	_, hasStockCol := cols[colUnitsInStock]

	var (
		records []SalesRecord
		stats   Stats
	)

	for {
		record, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			stats.Rows++
			stats.Malformed++
			observability.RecordIngestRow("malformed")
			continue
		}

		stats.Rows++

		rec, status, ok := r.parseRow(record, cols, hasStockCol)
		if !ok {
			stats.Malformed++
			observability.RecordIngestRow("malformed")
			continue
		}

		stats.Accepted++
		if status == "clamped" {
			stats.Clamped++
		}
		if rec.UnitsInStock == nil {
			stats.MissingStock++
		}
		observability.RecordIngestRow(status)

		records = append(records, rec)
	}

	return NewSnapshot(records, stats), nil
}

func (r *Reader) parseRow(record []string, cols map[string]int, hasStockCol bool) (SalesRecord, string, bool) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	rec := SalesRecord{
		StoreID:     get(colStoreID),
		CategoryKey: get(colCategoryKey),
	}
	if rec.StoreID == "" || rec.CategoryKey == "" {
		return SalesRecord{}, "", false
	}

	unitsSold, err := strconv.ParseFloat(get(colUnitsSold), 64)
	if err != nil || unitsSold < 0 {
		return SalesRecord{}, "", false
	}
	rec.UnitsSold = unitsSold

	revenue, err := strconv.ParseFloat(get(colRevenue), 64)
	if err != nil {
		return SalesRecord{}, "", false
	}
	rec.Revenue = revenue

	status := "ok"

	if hasStockCol {
		raw := get(colUnitsInStock)
		if raw != "" {
			stock, err := strconv.Atoi(raw)
			if err != nil || stock < 0 {
				return SalesRecord{}, "", false
			}

			// Clamp to the sane per-period range; the clamp is counted so
			// suspicious extracts are visible in the run report.
			if stock > r.cfg.MaxUnitsPerPeriod {
				stock = r.cfg.MaxUnitsPerPeriod
				status = "clamped"
			}

			rec.UnitsInStock = &stock
		}
	}

	return rec, status, true
}
