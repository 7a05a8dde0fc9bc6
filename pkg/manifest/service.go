// Package manifest records run outcomes in Redis so operators and the status
// API can tell what the last pipeline run did without re-reading its output
// files.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/pipeline"
	"github.com/retailops/shelfwise/pkg/redis"
)

// Run records are kept long enough to cover an audit window; the pipeline
// itself never reads them back.
const runRecordTTL = 30 * 24 * time.Hour

// Service stores and retrieves run summaries.
type Service struct {
	log    logrus.FieldLogger
	client *goredis.Client
	cfg    *redis.Config
}

// NewService creates a manifest service.
func NewService(log logrus.FieldLogger, client *goredis.Client, cfg *redis.Config) *Service {
	return &Service{
		log:    log.WithField("service", "manifest"),
		client: client,
		cfg:    cfg,
	}
}

func (s *Service) runKey(runID string) string {
	return s.cfg.PrefixKey("manifest:run:" + runID)
}

func (s *Service) latestKey() string {
	return s.cfg.PrefixKey("manifest:latest")
}

// RecordRun stores a run summary and marks it as the latest run. Manifest
// writes are bookkeeping: failures are logged and reported but must never
// fail the run that produced the summary.
func (s *Service) RecordRun(ctx context.Context, summary pipeline.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	if err := s.client.Set(ctx, s.runKey(summary.RunID), data, runRecordTTL).Err(); err != nil {
		return fmt.Errorf("store run summary: %w", err)
	}

	if err := s.client.Set(ctx, s.latestKey(), summary.RunID, runRecordTTL).Err(); err != nil {
		return fmt.Errorf("update latest run pointer: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"status":   summary.Status,
		"approved": summary.Approved,
		"rejected": summary.Rejected,
		"skipped":  summary.Skipped,
	}).Info("Recorded run in manifest")

	return nil
}

// Run retrieves one run summary. A missing run returns (nil, nil).
func (s *Service) Run(ctx context.Context, runID string) (*pipeline.Summary, error) {
	data, err := s.client.Get(ctx, s.runKey(runID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run summary: %w", err)
	}

	var summary pipeline.Summary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("decode run summary: %w", err)
	}

	return &summary, nil
}

// LatestRun retrieves the most recent run summary, or (nil, nil) when no run
// has been recorded.
func (s *Service) LatestRun(ctx context.Context) (*pipeline.Summary, error) {
	runID, err := s.client.Get(ctx, s.latestKey()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read latest run pointer: %w", err)
	}

	return s.Run(ctx, runID)
}
