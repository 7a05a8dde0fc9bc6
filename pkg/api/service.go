package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/retailops/shelfwise/pkg/manifest"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app      *fiber.App
	config   *Config
	manifest *manifest.Service
	log      logrus.FieldLogger
}

// NewService creates a new status API service.
func NewService(cfg *Config, manifestService *manifest.Service, log logrus.FieldLogger) Service {
	return &service{
		config:   cfg,
		manifest: manifestService,
		log:      log.WithField("service", "api"),
	}
}

// Start initializes and starts the API server.
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "shelfwise API",
	})

	setupMiddleware(s.app)
	s.registerRoutes()

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API server")

		if err := s.app.Listen(s.config.Addr); err != nil {
			s.log.WithError(err).Error("API server stopped with error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *service) Stop() error {
	if s.app == nil {
		return nil
	}

	return s.app.Shutdown()
}

func (s *service) registerRoutes() {
	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/status", s.handleStatus)
	v1.Get("/runs/:id", s.handleRun)
}

func (s *service) handleStatus(c fiber.Ctx) error {
	summary, err := s.manifest.LatestRun(c.Context())
	if err != nil {
		return fmt.Errorf("read latest run: %w", err)
	}

	if summary == nil {
		return c.JSON(fiber.Map{"latest_run": nil})
	}

	return c.JSON(fiber.Map{"latest_run": summary})
}

func (s *service) handleRun(c fiber.Ctx) error {
	summary, err := s.manifest.Run(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	if summary == nil {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}

	return c.JSON(summary)
}

var _ Service = (*service)(nil)
