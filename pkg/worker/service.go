// Package worker runs the task processing service that executes queued
// pipeline runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/manifest"
	"github.com/retailops/shelfwise/pkg/observability"
	"github.com/retailops/shelfwise/pkg/pipeline"
	rediscfg "github.com/retailops/shelfwise/pkg/redis"
	"github.com/retailops/shelfwise/pkg/tasks"
)

// Service defines the public interface for the worker service
type Service interface {
	// Start initializes and starts the worker service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker service
	Stop() error
}

// service encapsulates the worker application logic
type service struct {
	config *Config
	log    logrus.FieldLogger

	redisClient  *goredis.Client
	server       *asynq.Server
	healthServer *http.Server
}

// NewService creates a new worker service
func NewService(log logrus.FieldLogger, cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:    log.WithField("service", "worker"),
		config: cfg,
	}, nil
}

// Start initializes and starts the worker service
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

	runner, err := pipeline.NewRunner(s.log, &s.config.Pipeline,
		pipeline.WithBaselineCache(s.redisClient, &s.config.Redis))
	if err != nil {
		return fmt.Errorf("create pipeline runner: %w", err)
	}

	manifestService := manifest.NewService(s.log, s.redisClient, &s.config.Redis)
	handler := tasks.NewHandler(s.log, runner, manifestService)

	s.server = asynq.NewServer(*rediscfg.NewAsynqRedisOptions(redisOpt), asynq.Config{
		Concurrency: s.config.Concurrency,
		Queues: map[string]int{
			tasks.QueueName: 10,
		},
	})

	mux := asynq.NewServeMux()
	for taskType, handlerFunc := range handler.Routes() {
		mux.HandleFunc(taskType, handlerFunc)
	}

	go func() {
		if runErr := s.server.Run(mux); runErr != nil {
			s.log.WithError(runErr).Error("Worker server stopped with error")
		}
	}()

	s.log.Info("Worker service started successfully")

	return nil
}

// Stop gracefully shuts down the worker service
func (s *service) Stop() error {
	s.log.Info("Stopping worker service")

	if s.server != nil {
		s.server.Shutdown()
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

	s.log.Info("Worker service stopped successfully")

	return nil
}

func (s *service) startHealthCheck() {
	s.log.WithField("addr", s.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if s.server != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))
		}
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
