package ui

import (
	"time"
)

// Default configuration values.
const (
	DefaultRefreshInterval = 5 * time.Second
)

// Config holds UI package configuration.
type Config struct {
	// BasePath is the URL prefix where the UI is mounted.
	// For example, if mounted at "/panel/", set BasePath to "/panel".
	// Defaults to empty string (root mount).
	BasePath string

	// ReadOnly rejects every POST route with 403.
	// Useful for wall displays.
	ReadOnly bool

	// Logger for structured logging.
	// If nil, logging is disabled.
	Logger Logger

	// RefreshInterval is how often the pages poll their fragments.
	// Defaults to 5 seconds.
	RefreshInterval time.Duration
}

// Logger interface for structured logging.
// Compatible with roverpanel.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: DefaultRefreshInterval,
	}
}

// applyDefaults fills in default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
}

// validate checks the configuration for errors.
func (c *Config) validate() error {
	if c.RefreshInterval < time.Second {
		return ErrInvalidConfig
	}
	if c.BasePath != "" && (c.BasePath[0] != '/' || c.BasePath[len(c.BasePath)-1] == '/') {
		return ErrInvalidConfig
	}
	return nil
}
