package receiver

import (
	"time"

	"github.com/prilive-com/strmbot/internal/httpclient"
	"github.com/prilive-com/strmbot/tg"
)

// Config holds long polling configuration.
type Config struct {
	// API URL (defaults to https://api.telegram.org)
	BaseURL string

	// Transport settings. Request and response-header timeouts are derived
	// from PollingTimeout; ProxyURL and ConnectTimeout are used as given.
	HTTP httpclient.Config

	PollingTimeout     int           // Seconds to wait (0-60)
	PollingLimit       int           // Max updates per request (1-100)
	PollingMaxErrors   int           // Max consecutive errors (0 = unlimited)
	DeleteWebhookFirst bool          // Delete webhook before starting
	AllowedUpdates     []string      // Filter update types
	RetryInitialDelay  time.Duration // Initial retry delay
	RetryMaxDelay      time.Duration // Maximum retry delay
	RetryBackoffFactor float64       // Backoff multiplier

	UpdateBufferSize int // Channel buffer size

	// Circuit breaker
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:            tg.DefaultAPIBaseURL,
		HTTP:               httpclient.DefaultConfig(),
		PollingTimeout:     30,
		PollingLimit:       100,
		PollingMaxErrors:   10,
		DeleteWebhookFirst: true,
		AllowedUpdates:     []string{tg.UpdateTypeMessage},
		RetryInitialDelay:  time.Second,
		RetryMaxDelay:      60 * time.Second,
		RetryBackoffFactor: 2.0,
		UpdateBufferSize:   100,
		BreakerMaxRequests: 5,
		BreakerInterval:    2 * time.Minute,
		BreakerTimeout:     60 * time.Second,
	}
}

// Validate checks the polling bounds Telegram enforces.
func (c Config) Validate() error {
	if c.PollingTimeout < 0 || c.PollingTimeout > 60 {
		return tg.NewValidationError("polling_timeout", "must be 0-60")
	}
	if c.PollingLimit < 1 || c.PollingLimit > 100 {
		return tg.NewValidationError("polling_limit", "must be 1-100")
	}
	if c.PollingMaxErrors < 0 {
		return tg.NewValidationError("polling_max_errors", "cannot be negative")
	}
	return nil
}
