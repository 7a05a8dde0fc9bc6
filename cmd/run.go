package cmd

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/retailops/shelfwise/pkg/manifest"
	"github.com/retailops/shelfwise/pkg/pipeline"
	rediscfg "github.com/retailops/shelfwise/pkg/redis"
	"github.com/retailops/shelfwise/pkg/tasks"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	runEnqueue bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full pipeline run",
	Long: `Run ingests the sales snapshot, generates recommendations, gates
them against projected sell-through, and writes the report.

By default the run executes in-process. With --enqueue the run is
queued for a worker instead.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runEnqueue, "enqueue", false, "Queue the run for a worker instead of executing in-process")
}

func runRun(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := LoadCLIConfig(cfgFile)
	if err != nil {
		return err
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return validationErr
	}

	if level, parseErr := logrus.ParseLevel(cfg.Logging); parseErr == nil {
		logger.SetLevel(level)
	}

	redisConfig, err := cfg.RedisConfig()
	if err != nil {
		return err
	}

	var redisClient *goredis.Client
	if redisConfig != nil {
		opt, parseErr := goredis.ParseURL(redisConfig.URL)
		if parseErr != nil {
			return fmt.Errorf("parse redis URL: %w", parseErr)
		}
		redisClient = goredis.NewClient(opt)
		defer redisClient.Close()
	}

	if runEnqueue {
		return enqueueRun(redisConfig)
	}

	return executeRun(cmd, cfg, redisConfig, redisClient)
}

func executeRun(cmd *cobra.Command, cfg *CLIConfig, redisConfig *rediscfg.Config, redisClient *goredis.Client) error {
	var opts []pipeline.Option
	if redisClient != nil {
		opts = append(opts, pipeline.WithBaselineCache(redisClient, redisConfig))
	}

	runner, err := pipeline.NewRunner(logger, &cfg.Pipeline, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	run, runErr := runner.Execute(ctx)

	status := "success"
	if runErr != nil {
		status = "failed"
	}

	if redisClient != nil && run != nil {
		manifestService := manifest.NewService(logger, redisClient, redisConfig)
		if recordErr := manifestService.RecordRun(ctx, pipeline.Summarize(run, status)); recordErr != nil {
			logger.WithError(recordErr).Error("Failed to record run summary")
		}
	}

	return runErr
}

func enqueueRun(redisConfig *rediscfg.Config) error {
	if redisConfig == nil {
		return fmt.Errorf("--enqueue requires a redis URL in the configuration")
	}

	opt, err := goredis.ParseURL(redisConfig.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}

	queue := tasks.NewQueueManager(rediscfg.NewAsynqRedisOptions(opt))
	defer queue.Close()

	if err := queue.EnqueueRun(tasks.Payload{
		Trigger:    tasks.TriggerManual,
		EnqueuedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("enqueue run: %w", err)
	}

	logger.Info("Pipeline run enqueued")

	if info, statsErr := queue.QueueStats(); statsErr == nil {
		logger.WithFields(logrus.Fields{
			"pending": info.Pending,
			"active":  info.Active,
		}).Info("Queue status")
	}

	return nil
}
