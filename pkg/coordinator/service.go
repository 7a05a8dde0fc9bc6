// Package coordinator schedules pipeline runs and exposes the status API.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/api"
	"github.com/retailops/shelfwise/pkg/manifest"
	"github.com/retailops/shelfwise/pkg/observability"
	rediscfg "github.com/retailops/shelfwise/pkg/redis"
	"github.com/retailops/shelfwise/pkg/tasks"
)

// Service defines the public interface for the coordinator service
type Service interface {
	// Start begins scheduling pipeline runs
	Start(ctx context.Context) error

	// Stop gracefully shuts down the coordinator
	Stop() error
}

// service encapsulates the coordinator application logic
type service struct {
	config *Config
	log    logrus.FieldLogger

	redisClient  *goredis.Client
	scheduler    *asynq.Scheduler
	apiService   api.Service
	healthServer *http.Server
}

// NewService creates a new coordinator service
func NewService(log logrus.FieldLogger, cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:    log.WithField("service", "coordinator"),
		config: cfg,
	}, nil
}

// Start begins scheduling pipeline runs
func (s *service) Start(ctx context.Context) error {
	observability.StartMetricsServer(s.config.MetricsAddr)
	s.log.WithField("addr", s.config.MetricsAddr).Info("Started metrics server")

	if s.config.HealthCheckAddr != "" {
		s.startHealthCheck()
	}

	redisOpt, err := goredis.ParseURL(s.config.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}

	s.redisClient = goredis.NewClient(redisOpt)
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	if err := s.startScheduler(redisOpt); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	manifestService := manifest.NewService(s.log, s.redisClient, &s.config.Redis)
	s.apiService = api.NewService(&s.config.API, manifestService, s.log)

	if err := s.apiService.Start(ctx); err != nil {
		return fmt.Errorf("start API service: %w", err)
	}

	s.log.WithField("schedule", s.config.Schedule).Info("Coordinator started successfully")

	return nil
}

// Stop gracefully shuts down the coordinator
func (s *service) Stop() error {
	s.log.Info("Stopping coordinator")

	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}

	if s.apiService != nil {
		if err := s.apiService.Stop(); err != nil {
			s.log.WithError(err).Error("Failed to stop API service")
		}
	}

	if s.healthServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.healthServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Error("Failed to shutdown health check server")
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.WithError(err).Error("Failed to close Redis client")
		}
	}

	s.log.Info("Coordinator stopped successfully")

	return nil
}

// startScheduler registers the recurring pipeline run task and starts the
// Asynq scheduler. Workers pick the task up off the pipeline queue, so the
// coordinator never executes runs itself.
func (s *service) startScheduler(redisOpt *goredis.Options) error {
	s.scheduler = asynq.NewScheduler(*rediscfg.NewAsynqRedisOptions(redisOpt), &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.InfoLevel,
	})

	task, err := tasks.NewRunTask(tasks.Payload{
		Trigger:    tasks.TriggerSchedule,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	entryID, err := s.scheduler.Register(s.config.Schedule, task,
		asynq.Queue(tasks.QueueName),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Hour),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", s.config.Schedule, err)
	}

	s.log.WithFields(logrus.Fields{
		"schedule": s.config.Schedule,
		"entry_id": entryID,
	}).Info("Registered scheduled pipeline run")

	go func() {
		if runErr := s.scheduler.Run(); runErr != nil {
			s.log.WithError(runErr).Error("Scheduler stopped with error")
		}
	}()

	return nil
}

func (s *service) startHealthCheck() {
	s.log.WithField("addr", s.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.healthServer = &http.Server{
		Addr:              s.config.HealthCheckAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health check server failed")
		}
	}()
}

var _ Service = (*service)(nil)
