// Package testutil provides shared fixtures for unit tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	rediscfg "github.com/retailops/shelfwise/pkg/redis"
)

// NewRedisFixture returns an in-memory Redis server, a connected client, and
// a matching config with a test key prefix. Server and client are closed
// when the test completes.
func NewRedisFixture(t *testing.T) (*miniredis.Miniredis, *goredis.Client, *rediscfg.Config) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis test client: %v", err)
		}
	})

	cfg := &rediscfg.Config{
		URL:    "redis://" + mr.Addr(),
		Prefix: "shelfwise-test",
	}

	return mr, client, cfg
}
