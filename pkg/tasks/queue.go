package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// QueueManager manages the pipeline run queue.
type QueueManager struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewQueueManager creates a new queue manager.
func NewQueueManager(redisOpt *asynq.RedisClientOpt) *QueueManager {
	return &QueueManager{
		client:    asynq.NewClient(*redisOpt),
		inspector: asynq.NewInspector(*redisOpt),
	}
}

// NewRunTask builds an Asynq task for a pipeline run.
func NewRunTask(payload Payload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal run payload: %w", err)
	}

	return asynq.NewTask(TypePipelineRun, data), nil
}

// EnqueueRun enqueues a pipeline run task. Runs are heavyweight: one retry,
// generous timeout.
func (q *QueueManager) EnqueueRun(payload Payload, opts ...asynq.Option) error {
	task, err := NewRunTask(payload)
	if err != nil {
		return err
	}

	defaultOpts := []asynq.Option{
		asynq.Queue(QueueName),
		asynq.MaxRetry(1),
		asynq.Timeout(2 * time.Hour),
	}

	_, err = q.client.Enqueue(task, append(defaultOpts, opts...)...)

	return err
}

// QueueStats returns queue statistics for the pipeline queue.
func (q *QueueManager) QueueStats() (*asynq.QueueInfo, error) {
	return q.inspector.GetQueueInfo(QueueName)
}

// Close closes the queue manager.
func (q *QueueManager) Close() error {
	return q.client.Close()
}
