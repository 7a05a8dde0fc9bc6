package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/retailops/shelfwise/pkg/worker"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	workerCfgFile string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the shelfwise worker service",
	Long:  `The worker service processes queued pipeline runs.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerCfgFile, "config", "worker.yaml", "config file (default is worker.yaml)")
}

func loadWorkerConfigFromFile(file string) (*worker.Config, error) {
	if file == "" {
		file = "worker.yaml"
	}

	config := &worker.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	// Load configuration
	config, err := loadWorkerConfigFromFile(workerCfgFile)
	if err != nil {
		return err
	}

	// Setup logger
	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(level)

	log.Info("Configuration loaded")

	// Create and start worker service
	svc, err := worker.NewService(log, config)
	if err != nil {
		return err
	}
	if err := svc.Start(context.Background()); err != nil {
		return err
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	return svc.Stop()
}
