// Package api exposes run status over HTTP for operators and dashboards.
package api

import "errors"

var (
	// ErrAddrRequired is returned when the API is enabled without an address
	ErrAddrRequired = errors.New("api address is required when API is enabled")
)

// Config represents API service configuration
type Config struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Addr    string `yaml:"addr" default:":8080"`
}

// Validate validates the API configuration
func (c *Config) Validate() error {
	if c.Enabled && c.Addr == "" {
		return ErrAddrRequired
	}

	return nil
}
