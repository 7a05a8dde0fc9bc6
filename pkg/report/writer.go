// Package report emits the run outputs the merchandising team consumes: the
// full validated recommendation table and a human-readable summary. Every
// candidate row appears with its validation outcome; silently dropping
// skipped rows would defeat the audit trail.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

var (
	// ErrResultMismatch is returned when candidates and results are misaligned
	ErrResultMismatch = errors.New("candidate and result counts differ")
)

// Config holds report output settings.
type Config struct {
	// OutDir is the directory run outputs are written to
	OutDir string `yaml:"outDir" default:"out"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return errors.New("report output directory is required")
	}

	return nil
}

// Writer writes run outputs.
type Writer struct {
	log logrus.FieldLogger
	cfg *Config
}

// NewWriter creates a report writer.
func NewWriter(log logrus.FieldLogger, cfg *Config) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report config: %w", err)
	}

	return &Writer{
		log: log.WithField("service", "report"),
		cfg: cfg,
	}, nil
}

// Write emits recommendations.csv and summary.txt for one run.
func (w *Writer) Write(runID string, candidates []sellthrough.Recommendation, results []sellthrough.Result, stats sellthrough.BatchStats) error {
	if len(candidates) != len(results) {
		return fmt.Errorf("%w: %d candidates, %d results", ErrResultMismatch, len(candidates), len(results))
	}

	if err := os.MkdirAll(w.cfg.OutDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	csvPath := filepath.Join(w.cfg.OutDir, "recommendations.csv")
	if err := w.writeCSV(csvPath, candidates, results); err != nil {
		return err
	}

	summaryPath := filepath.Join(w.cfg.OutDir, "summary.txt")
	if err := w.writeSummary(summaryPath, runID, candidates, results, stats); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"rows":    len(candidates),
		"csv":     csvPath,
		"summary": summaryPath,
	}).Info("Wrote run report")

	return nil
}

func (w *Writer) writeCSV(path string, candidates []sellthrough.Recommendation, results []sellthrough.Result) error {
	f, err := os.Create(path) //nolint:gosec // Operator-configured output path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Flush errors are caught below

	cw := csv.NewWriter(f)

	header := []string{
		"store_id", "category_key", "rule", "action",
		"current_quantity", "proposed_quantity",
		"sell_through_current_pct", "sell_through_projected_pct", "improvement_pp",
		"status", "reason", "rationale",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, rec := range candidates {
		res := results[i]

		row := []string{
			rec.StoreID,
			rec.CategoryKey,
			rec.Rule,
			string(rec.Action),
			optInt(rec.CurrentQuantity),
			optInt(rec.ProposedQuantity),
			optPct(res.CurrentPct),
			optPct(res.ProjectedPct),
			optPct(res.ImprovementPP),
			res.Status(),
			string(res.Reason),
			res.Rationale,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// optInt renders an optional quantity; missing values stay visibly empty
// rather than becoming zero.
func optInt(v *int) string {
	if v == nil {
		return ""
	}

	return strconv.Itoa(*v)
}

func optPct(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', 2, 64)
}
