// Package redis provides Redis client configuration shared by the
// coordinator, worker, manifest, and baseline cache.
package redis

import (
	"errors"
	"fmt"
)

var (
	// ErrURLRequired is returned when no Redis URL is configured
	ErrURLRequired = errors.New("redis URL is required")
)

// Config holds Redis client configuration
type Config struct {
	URL    string `yaml:"url" default:"redis://localhost:6379"`
	Prefix string `yaml:"prefix" default:"shelfwise"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	if c.Prefix == "" {
		c.Prefix = "shelfwise"
	}

	return nil
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}

// PrefixQueue adds the configured prefix to an Asynq queue name
func (c *Config) PrefixQueue(queue string) string {
	if c.Prefix == "" {
		return queue
	}

	return fmt.Sprintf("%s:%s", c.Prefix, queue)
}
