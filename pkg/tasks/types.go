// Package tasks provides the Asynq task plumbing that connects the
// coordinator's schedule to the workers that execute pipeline runs.
package tasks

import (
	"time"
)

const (
	// TypePipelineRun is the task type for a full pipeline run
	TypePipelineRun = "pipeline:run"

	// QueueName is the queue pipeline run tasks are enqueued on
	QueueName = "pipeline"
)

// Trigger labels for run tasks.
const (
	// TriggerSchedule marks a cron-scheduled run
	TriggerSchedule = "schedule"
	// TriggerManual marks an operator-requested run
	TriggerManual = "manual"
)

// Payload is the body of a pipeline run task. The run ID itself is
// assigned by the pipeline when the worker picks the task up.
type Payload struct {
	Trigger    string    `json:"trigger"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
