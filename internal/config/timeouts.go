package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP API.
// These can be configured via CLI flags on the serve command.
type TimeoutConfig struct {
	// HTTPRead bounds reading a request, body included. Default: 15s
	HTTPRead time.Duration

	// HTTPIdle is the keep-alive timeout between requests. Default: 120s
	HTTPIdle time.Duration

	// Request bounds a single API request end to end. Default: 30s
	Request time.Duration

	// WebSocketPing is the interval between keepalive pings on the event
	// feed. Default: 30s
	WebSocketPing time.Duration

	// Shutdown is how long in-flight requests get on shutdown. Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPRead:      15 * time.Second,
		HTTPIdle:      120 * time.Second,
		Request:       30 * time.Second,
		WebSocketPing: 30 * time.Second,
		Shutdown:      30 * time.Second,
	}
}
