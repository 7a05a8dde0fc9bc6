package worker

import (
	"testing"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultWorkerConfig(t *testing.T) *Config {
	t.Helper()

	cfg := &Config{}
	require.NoError(t, defaults.Set(cfg))

	return cfg
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaultWorkerConfig(t)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Concurrency)

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := defaultWorkerConfig(t)
		cfg.Concurrency = 0
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConcurrency)
	})

	t.Run("negative concurrency", func(t *testing.T) {
		cfg := defaultWorkerConfig(t)
		cfg.Concurrency = -1
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConcurrency)
	})

	t.Run("missing redis URL", func(t *testing.T) {
		cfg := defaultWorkerConfig(t)
		cfg.Redis.URL = ""
		require.Error(t, cfg.Validate())
	})
}

func TestNewService(t *testing.T) {
	svc, err := NewService(logrus.New(), defaultWorkerConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, svc)

	t.Run("invalid config", func(t *testing.T) {
		cfg := defaultWorkerConfig(t)
		cfg.Concurrency = 0

		_, err := NewService(logrus.New(), cfg)
		require.ErrorIs(t, err, ErrInvalidConcurrency)
	})
}
