// Package pipeline assembles and executes the product-mix optimization run:
// ingest, baseline load, store clustering, the six business rules,
// consolidation, the sell-through compliance gate, and report output, as a
// dependency-ordered step graph.
package pipeline

import (
	"context"
	"time"

	"github.com/retailops/shelfwise/pkg/baseline"
	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// StepID identifies a pipeline step.
type StepID string

// Standard step IDs.
const (
	StepIngest      StepID = "ingest"
	StepBaselines   StepID = "baselines"
	StepCluster     StepID = "cluster"
	StepConsolidate StepID = "consolidate"
	StepValidate    StepID = "validate"
	StepReport      StepID = "report"

	// RuleStepPrefix prefixes the per-rule step IDs, e.g. rule:overcapacity
	RuleStepPrefix = "rule:"
)

// Step is one unit of pipeline work.
type Step struct {
	ID        StepID
	DependsOn []StepID
	Run       func(ctx context.Context, run *Run) error
}

// StepStat records the outcome of one executed step.
type StepStat struct {
	ID       StepID        `json:"id"`
	Status   string        `json:"status"` // success, failed
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Run is the mutable state threaded through one pipeline run. Steps populate
// the fields their dependents consume; nothing persists between runs.
type Run struct {
	ID        string
	StartedAt time.Time

	Snapshot   *ingest.Snapshot
	Baselines  baseline.Provider
	Groups     *cluster.Assignment
	Candidates []sellthrough.Recommendation
	Results    []sellthrough.Result
	Stats      sellthrough.BatchStats

	StepStats []StepStat
}

// Summary is the persisted run outcome recorded in the manifest.
type Summary struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Status     string     `json:"status"`
	Candidates int        `json:"candidates"`
	Approved   int        `json:"approved"`
	Rejected   int        `json:"rejected"`
	Skipped    int        `json:"skipped"`
	Steps      []StepStat `json:"steps"`
}
