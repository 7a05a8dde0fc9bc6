package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/manifest"
	"github.com/retailops/shelfwise/pkg/observability"
	"github.com/retailops/shelfwise/pkg/pipeline"
)

// Handler executes pipeline run tasks picked up from the queue.
type Handler struct {
	log      logrus.FieldLogger
	runner   *pipeline.Runner
	manifest *manifest.Service
}

// NewHandler creates a task handler. The manifest service may be nil, in
// which case run summaries are not recorded.
func NewHandler(log logrus.FieldLogger, runner *pipeline.Runner, manifestService *manifest.Service) *Handler {
	return &Handler{
		log:      log.WithField("component", "task-handler"),
		runner:   runner,
		manifest: manifestService,
	}
}

// Routes returns the task type to handler mapping for the serve mux.
func (h *Handler) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypePipelineRun: h.HandlePipelineRun,
	}
}

// HandlePipelineRun executes a full pipeline run for a queued task.
func (h *Handler) HandlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		observability.RecordTask(TypePipelineRun, "unmarshal_error")
		return fmt.Errorf("unmarshal run payload: %w", err)
	}

	h.log.WithFields(logrus.Fields{
		"trigger":     payload.Trigger,
		"enqueued_at": payload.EnqueuedAt,
	}).Info("Starting pipeline run task")

	start := time.Now()

	run, err := h.runner.Execute(ctx)

	status := "success"
	if err != nil {
		status = "failed"
	}

	if run != nil {
		h.recordSummary(ctx, run, status)
	}

	observability.RecordTask(TypePipelineRun, status)

	if err != nil {
		h.log.WithError(err).WithField("duration", time.Since(start)).Error("Pipeline run task failed")
		return fmt.Errorf("pipeline run: %w", err)
	}

	h.log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"duration": time.Since(start),
	}).Info("Pipeline run task complete")

	return nil
}

func (h *Handler) recordSummary(ctx context.Context, run *pipeline.Run, status string) {
	if h.manifest == nil {
		return
	}

	if err := h.manifest.RecordRun(ctx, pipeline.Summarize(run, status)); err != nil {
		h.log.WithError(err).WithField("run_id", run.ID).Error("Failed to record run summary")
	}
}
