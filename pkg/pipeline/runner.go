package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/baseline"
	"github.com/retailops/shelfwise/pkg/cluster"
	"github.com/retailops/shelfwise/pkg/ingest"
	"github.com/retailops/shelfwise/pkg/observability"
	rediscfg "github.com/retailops/shelfwise/pkg/redis"
	"github.com/retailops/shelfwise/pkg/report"
	"github.com/retailops/shelfwise/pkg/rules"
	"github.com/retailops/shelfwise/pkg/sellthrough"
)

// Runner executes the standard pipeline graph. The run itself is
// single-threaded and batch-oriented: steps execute sequentially in
// dependency order, and any I/O happens inside the step that owns it.
type Runner struct {
	log   logrus.FieldLogger
	cfg   *Config
	graph *Graph

	// Optional Redis-backed baseline cache.
	redisClient *goredis.Client
	redisCfg    *rediscfg.Config
}

// Option customizes a Runner.
type Option func(*Runner)

// WithBaselineCache enables the Redis read-through cache for baseline lookups.
func WithBaselineCache(client *goredis.Client, cfg *rediscfg.Config) Option {
	return func(r *Runner) {
		r.redisClient = client
		r.redisCfg = cfg
	}
}

// NewRunner builds a runner with the standard step graph.
func NewRunner(log logrus.FieldLogger, cfg *Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	r := &Runner{
		log: log.WithField("service", "pipeline"),
		cfg: cfg,
	}

	for _, opt := range opts {
		opt(r)
	}

	graph, err := r.buildGraph()
	if err != nil {
		return nil, err
	}
	r.graph = graph

	return r, nil
}

// Graph exposes the step graph for inspection.
func (r *Runner) Graph() *Graph {
	return r.graph
}

// Execute runs the whole pipeline once. The returned Run carries per-step
// stats even when a step fails; the error names the failing step.
func (r *Runner) Execute(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	r.log.WithField("run_id", run.ID).Info("Starting pipeline run")

	for _, id := range r.graph.TopologicalOrder() {
		if err := r.ExecuteStep(ctx, run, id); err != nil {
			observability.RecordRun("failed")
			return run, fmt.Errorf("step %s: %w", id, err)
		}
	}

	observability.RecordRun("success")

	r.log.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"candidates": len(run.Candidates),
		"approved":   run.Stats.Approved,
		"rejected":   run.Stats.Rejected,
		"skipped":    run.Stats.Skipped,
	}).Info("Pipeline run complete")

	return run, nil
}

// ExecuteStep runs a single step with timing, metrics, and stat recording.
func (r *Runner) ExecuteStep(ctx context.Context, run *Run, id StepID) error {
	step, err := r.graph.Step(id)
	if err != nil {
		return err
	}

	start := time.Now()
	log := r.log.WithFields(logrus.Fields{"run_id": run.ID, "step": id})
	log.Info("Executing step")

	err = step.Run(ctx, run)
	elapsed := time.Since(start)

	stat := StepStat{ID: id, Status: "success", Duration: elapsed}
	if err != nil {
		stat.Status = "failed"
		stat.Error = err.Error()
	}
	run.StepStats = append(run.StepStats, stat)

	observability.RecordStep(string(id), stat.Status, elapsed.Seconds())

	if err != nil {
		log.WithError(err).Error("Step failed")
		return err
	}

	log.WithField("duration", elapsed).Info("Step complete")

	return nil
}

// Summarize converts a finished run into its manifest summary.
func Summarize(run *Run, status string) Summary {
	return Summary{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: time.Now().UTC(),
		Status:     status,
		Candidates: len(run.Candidates),
		Approved:   run.Stats.Approved,
		Rejected:   run.Stats.Rejected,
		Skipped:    run.Stats.Skipped,
		Steps:      run.StepStats,
	}
}

// buildGraph registers the standard steps in dependency order.
func (r *Runner) buildGraph() (*Graph, error) {
	g := NewGraph()

	ruleSet, err := rules.New(r.log, &r.cfg.Rules)
	if err != nil {
		return nil, err
	}

	validator, err := sellthrough.NewValidator(&r.cfg.Validation)
	if err != nil {
		return nil, err
	}

	steps := []*Step{
		{ID: StepIngest, Run: r.runIngest},
		{ID: StepBaselines, Run: r.runBaselines},
		{ID: StepCluster, DependsOn: []StepID{StepIngest}, Run: r.runCluster},
	}

	ruleStepIDs := make([]StepID, 0, len(ruleSet))
	for _, rule := range ruleSet {
		rule := rule
		id := StepID(RuleStepPrefix + rule.Name())
		ruleStepIDs = append(ruleStepIDs, id)

		steps = append(steps, &Step{
			ID:        id,
			DependsOn: []StepID{StepCluster},
			Run: func(ctx context.Context, run *Run) error {
				candidates, err := rule.Evaluate(ctx, run.Snapshot, run.Groups)
				if err != nil {
					return err
				}

				run.Candidates = append(run.Candidates, candidates...)

				return nil
			},
		})
	}

	steps = append(steps,
		&Step{ID: StepConsolidate, DependsOn: ruleStepIDs, Run: runConsolidate},
		&Step{
			ID:        StepValidate,
			DependsOn: []StepID{StepConsolidate, StepBaselines},
			Run:       r.makeValidateStep(validator),
		},
		&Step{ID: StepReport, DependsOn: []StepID{StepValidate}, Run: r.runReport},
	)

	for _, step := range steps {
		if err := g.AddStep(step); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (r *Runner) runIngest(_ context.Context, run *Run) error {
	reader, err := ingest.NewReader(r.log, &r.cfg.Ingest)
	if err != nil {
		return err
	}

	snapshot, err := reader.Load()
	if err != nil {
		return err
	}

	run.Snapshot = snapshot

	return nil
}

func (r *Runner) runBaselines(_ context.Context, run *Run) error {
	provider, err := baseline.NewCSVProvider(r.log, r.cfg.Ingest.BaselinesPath)
	if err != nil {
		return err
	}

	if r.redisClient != nil {
		run.Baselines = baseline.NewCachedProvider(r.log, r.redisClient, r.redisCfg, provider, r.cfg.BaselineCacheTTL)
	} else {
		run.Baselines = provider
	}

	return nil
}

func (r *Runner) runCluster(_ context.Context, run *Run) error {
	clusterer, err := cluster.New(r.log, &r.cfg.Cluster)
	if err != nil {
		return err
	}

	groups, err := clusterer.Cluster(run.Snapshot)
	if err != nil {
		return err
	}

	run.Groups = groups

	return nil
}

// runConsolidate merges the rule outputs into one deterministic table.
// Duplicate keys across rules are kept: the batch runner dedups the decision
// while every source row stays visible in the report.
func runConsolidate(_ context.Context, run *Run) error {
	sort.SliceStable(run.Candidates, func(i, j int) bool {
		a, b := run.Candidates[i], run.Candidates[j]
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		if a.CategoryKey != b.CategoryKey {
			return a.CategoryKey < b.CategoryKey
		}
		return a.Rule < b.Rule
	})

	return nil
}

func (r *Runner) makeValidateStep(validator *sellthrough.Validator) func(context.Context, *Run) error {
	return func(ctx context.Context, run *Run) error {
		lookup := baseline.NewFallbackProvider(run.Baselines, run.Groups)

		runner := sellthrough.NewBatchRunner(r.log, validator)

		results, stats, err := runner.ValidateBatch(ctx, run.Candidates, lookup)
		if err != nil {
			return err
		}

		run.Results = results
		run.Stats = stats

		return nil
	}
}

func (r *Runner) runReport(_ context.Context, run *Run) error {
	writer, err := report.NewWriter(r.log, &r.cfg.Report)
	if err != nil {
		return err
	}

	return writer.Write(run.ID, run.Candidates, run.Results, run.Stats)
}
