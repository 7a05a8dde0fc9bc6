package report

import (
	"fmt"
	"os"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// summaryTemplate renders the run header. Sprig supplies the date formatting
// helpers.
const summaryTemplate = `Product-mix optimization run {{ .RunID }}
Generated {{ now | date "2006-01-02 15:04:05 MST" }}

Candidates: {{ .Total }} ({{ .Unique }} unique store/category/quantity combinations)
Approved:   {{ .Approved }}
Rejected:   {{ .Rejected }}
Skipped:    {{ .Skipped }}{{ if .Skipped }}  (skips are listed per reason below; skipped rows were NOT validated){{ end }}

`

type summaryData struct {
	RunID    string
	Total    int
	Unique   int
	Approved int
	Rejected int
	Skipped  int
}

// writeSummary renders the per-rule outcome table and reason counts.
func (w *Writer) writeSummary(path, runID string, candidates []sellthrough.Recommendation, results []sellthrough.Result, stats sellthrough.BatchStats) error {
	f, err := os.Create(path) //nolint:gosec // Operator-configured output path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Best-effort text output

	tmpl, err := template.New("summary").Funcs(sprig.TxtFuncMap()).Parse(summaryTemplate)
	if err != nil {
		return err
	}

	data := summaryData{
		RunID:    runID,
		Total:    stats.Total,
		Unique:   stats.Unique,
		Approved: stats.Approved,
		Rejected: stats.Rejected,
		Skipped:  stats.Skipped,
	}
	if err := tmpl.Execute(f, data); err != nil {
		return err
	}

	// Per-rule outcome table.
	type ruleCounts struct {
		approved, rejected, skipped int
	}
	byRule := make(map[string]*ruleCounts)
	for i, rec := range candidates {
		counts, ok := byRule[rec.Rule]
		if !ok {
			counts = &ruleCounts{}
			byRule[rec.Rule] = counts
		}

		switch results[i].Status() {
		case "approved":
			counts.approved++
		case "rejected":
			counts.rejected++
		default:
			counts.skipped++
		}
	}

	ruleNames := make([]string, 0, len(byRule))
	for name := range byRule {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)

	t := table.NewWriter()
	t.SetOutputMirror(f)
	t.AppendHeader(table.Row{"Rule", "Approved", "Rejected", "Skipped"})
	for _, name := range ruleNames {
		counts := byRule[name]
		t.AppendRow(table.Row{name, counts.approved, counts.rejected, counts.skipped})
	}
	t.Render()

	// Reason breakdown, sorted for stable output.
	reasons := make([]string, 0, len(stats.ByReason))
	for reason := range stats.ByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	fmt.Fprintln(f)
	for _, reason := range reasons {
		fmt.Fprintf(f, "%6d  %s\n", stats.ByReason[sellthrough.ReasonCode(reason)], reason)
	}

	return nil
}
