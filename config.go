package roverpanel

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DefaultTimezone must resolve on hosts without zoneinfo

	"github.com/youssefsiam38/roverpanel/maintenance"
)

// Default configuration values.
const (
	DefaultAPIBase       = "http://127.0.0.1:5500"
	DefaultDeviceID      = 1
	DefaultPlaybackDelay = 800 * time.Millisecond
	DefaultTimezone      = "America/Mexico_City"
)

// ModePolicy decides whether recording and playback may overlap.
type ModePolicy string

const (
	// ModesConcurrent lets a recording and a playback run at the same time.
	ModesConcurrent ModePolicy = "concurrent"

	// ModesExclusive rejects starting one mode while the other is active.
	ModesExclusive ModePolicy = "exclusive"
)

// IsValid returns true if the policy is known.
func (p ModePolicy) IsValid() bool {
	return p == ModesConcurrent || p == ModesExclusive
}

// Logger interface for structured logging.
// Compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration shared by the control panel and the monitor.
type Config struct {
	// APIBase is the root URL of the remote HTTP API.
	// Default: http://127.0.0.1:5500
	APIBase string

	// PushURL is the WebSocket endpoint of the push channel.
	// Empty disables push notifications.
	PushURL string

	// DeviceID is used when no device has been persisted yet.
	// Default: 1
	DeviceID int

	// Speed is the PWM level of manual commands. Zero is a valid level
	// (motors stopped); DefaultConfig and ConfigFromEnv start from 180.
	Speed int

	// PlaybackDelay is the pause between two playback polls.
	// Default: 800ms
	PlaybackDelay time.Duration

	// RefreshInterval is the monitor's auto refresh period.
	// Default: 5 seconds
	RefreshInterval time.Duration

	// RequestTimeout bounds a single API request.
	// Default: 10 seconds
	RequestTimeout time.Duration

	// Timezone is the IANA zone used to display timestamps.
	// Default: America/Mexico_City
	Timezone string

	// ModePolicy decides whether recording and playback may overlap.
	// Default: ModesConcurrent
	ModePolicy ModePolicy

	// Logger for structured logging.
	// If nil, logging is disabled.
	Logger Logger
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	c := &Config{Speed: DefaultSpeed}
	c.applyDefaults()
	return c
}

// applyDefaults fills in default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.DeviceID == 0 {
		c.DeviceID = DefaultDeviceID
	}
	if c.PlaybackDelay == 0 {
		c.PlaybackDelay = DefaultPlaybackDelay
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = maintenance.DefaultRefreshInterval
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ModePolicy == "" {
		c.ModePolicy = ModesConcurrent
	}
	if c.Logger == nil {
		c.Logger = discardLogger{}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIBase, "http://") && !strings.HasPrefix(c.APIBase, "https://") {
		return fmt.Errorf("%w: APIBase must be an http(s) URL, got %q", ErrInvalidConfig, c.APIBase)
	}
	if c.PushURL != "" && !strings.HasPrefix(c.PushURL, "ws://") && !strings.HasPrefix(c.PushURL, "wss://") {
		return fmt.Errorf("%w: PushURL must be a ws(s) URL, got %q", ErrInvalidConfig, c.PushURL)
	}
	if c.DeviceID < 1 {
		return fmt.Errorf("%w: DeviceID must be positive", ErrInvalidConfig)
	}
	if err := ValidateSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.PlaybackDelay < 0 {
		return fmt.Errorf("%w: PlaybackDelay must not be negative", ErrInvalidConfig)
	}
	if c.RefreshInterval < 100*time.Millisecond {
		return fmt.Errorf("%w: RefreshInterval must be at least 100ms", ErrInvalidConfig)
	}
	if !c.ModePolicy.IsValid() {
		return fmt.Errorf("%w: unknown ModePolicy %q", ErrInvalidConfig, c.ModePolicy)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: Timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location returns the display time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Environment variables read by ConfigFromEnv.
const (
	EnvAPIBase         = "ROVER_API_BASE"
	EnvPushURL         = "ROVER_PUSH_URL"
	EnvDeviceID        = "ROVER_DEVICE_ID"
	EnvSpeed           = "ROVER_SPEED"
	EnvRefreshInterval = "ROVER_REFRESH_INTERVAL"
	EnvPlaybackDelay   = "ROVER_PLAYBACK_DELAY"
	EnvTimezone        = "ROVER_TIMEZONE"
	EnvModePolicy      = "ROVER_MODE_POLICY"
)

// ConfigFromEnv builds a Config from environment variables. Unset variables
// keep their defaults. getenv is usually os.Getenv.
func ConfigFromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		Speed:      DefaultSpeed,
		APIBase:    strings.TrimSpace(getenv(EnvAPIBase)),
		PushURL:    strings.TrimSpace(getenv(EnvPushURL)),
		Timezone:   strings.TrimSpace(getenv(EnvTimezone)),
		ModePolicy: ModePolicy(strings.ToLower(strings.TrimSpace(getenv(EnvModePolicy)))),
	}

	var err error
	if c.DeviceID, err = envInt(getenv, EnvDeviceID); err != nil {
		return nil, err
	}
	if raw := strings.TrimSpace(getenv(EnvSpeed)); raw != "" {
		if c.Speed, err = envInt(getenv, EnvSpeed); err != nil {
			return nil, err
		}
	}
	if c.RefreshInterval, err = envDuration(getenv, EnvRefreshInterval); err != nil {
		return nil, err
	}
	if c.PlaybackDelay, err = envDuration(getenv, EnvPlaybackDelay); err != nil {
		return nil, err
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func envInt(getenv func(string) string, key string) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	return n, nil
}

// envDuration accepts Go durations ("5s") or bare milliseconds ("5000").
func envDuration(getenv func(string) string, key string) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, raw)
	}
	return d, nil
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
