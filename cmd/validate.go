package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/retailops/shelfwise/pkg/baseline"
	"github.com/retailops/shelfwise/pkg/report"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

var (
	// ErrMissingColumn is returned when a required CSV column is absent
	ErrMissingColumn = errors.New("missing required column")
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	validateRecsPath      string
	validateBaselinesPath string
	validateOutDir        string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Gate a recommendations file against historical baselines",
	Long: `Validate reads externally produced recommendations from a CSV file,
gates each one against projected sell-through using the baselines file,
and writes the decision report.

The recommendations CSV needs store_id, category_key, rule, action,
current_quantity, and proposed_quantity columns. Blank quantities are
treated as missing and the row is skipped rather than guessed at.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateRecsPath, "recommendations", "", "Recommendations CSV file")
	validateCmd.Flags().StringVar(&validateBaselinesPath, "baselines", "", "Historical baselines CSV file")
	validateCmd.Flags().StringVar(&validateOutDir, "out", "out", "Output directory for the report")

	_ = validateCmd.MarkFlagRequired("recommendations")
	_ = validateCmd.MarkFlagRequired("baselines")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := LoadCLIConfig(cfgFile)
	if err != nil {
		return err
	}

	recs, err := loadRecommendations(validateRecsPath)
	if err != nil {
		return fmt.Errorf("load recommendations: %w", err)
	}

	baselines, err := baseline.NewCSVProvider(logger, validateBaselinesPath)
	if err != nil {
		return fmt.Errorf("load baselines: %w", err)
	}

	validator, err := sellthrough.NewValidator(&cfg.Pipeline.Validation)
	if err != nil {
		return err
	}

	runner := sellthrough.NewBatchRunner(logger, validator)

	results, stats, err := runner.ValidateBatch(cmd.Context(), recs, baselines)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(logger, &report.Config{OutDir: validateOutDir})
	if err != nil {
		return err
	}

	return writer.Write("adhoc", recs, results, stats)
}

// loadRecommendations parses a recommendations CSV. Blank quantity cells
// become nil pointers so the gate records them as missing data instead of
// inventing zeroes.
func loadRecommendations(path string) ([]sellthrough.Recommendation, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided file path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	for _, required := range []string{"store_id", "category_key", "rule", "action"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	recs := make([]sellthrough.Recommendation, 0, len(rows))
	for _, row := range rows {
		rec := sellthrough.Recommendation{
			StoreID:     row[cols["store_id"]],
			CategoryKey: row[cols["category_key"]],
			Rule:        row[cols["rule"]],
			Action:      sellthrough.Action(row[cols["action"]]),
		}

		rec.CurrentQuantity, err = optionalInt(row, cols, "current_quantity")
		if err != nil {
			return nil, err
		}
		rec.ProposedQuantity, err = optionalInt(row, cols, "proposed_quantity")
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func optionalInt(row []string, cols map[string]int, name string) (*int, error) {
	idx, ok := cols[name]
	if !ok || row[idx] == "" {
		return nil, nil //nolint:nilnil // Absence of the column or cell means missing data
	}

	v, err := strconv.Atoi(row[idx])
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}

	return &v, nil
}
