// Package validate holds the field checks used when loading configuration.
// Every check returns a *tg.ConfigError naming the offending key.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prilive-com/strmbot/tg"
)

func newf(key, format string, args ...any) *tg.ConfigError {
	return tg.NewConfigError(key, fmt.Sprintf(format, args...))
}

// Token validates a Telegram bot token format.
// Format: {bot_id}:{secret} where bot_id is numeric.
func Token(key, token string) error {
	if token == "" {
		return tg.NewConfigError(key, "is required")
	}

	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return tg.NewConfigError(key, "invalid format, expected {bot_id}:{secret}")
	}
	if botID == "" {
		return tg.NewConfigError(key, "bot_id cannot be empty")
	}
	for _, c := range botID {
		if c < '0' || c > '9' {
			return tg.NewConfigError(key, "bot_id must be numeric")
		}
	}
	if secret == "" {
		return tg.NewConfigError(key, "secret cannot be empty")
	}
	return nil
}

// Required validates that a string is not blank.
func Required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return tg.NewConfigError(key, "is required")
	}
	return nil
}

// Positive validates that a value is positive.
func Positive(key string, value int) error {
	if value <= 0 {
		return newf(key, "must be positive, got %d", value)
	}
	return nil
}

// InRange validates that a value is within [lo, hi].
func InRange(key string, value, lo, hi int) error {
	if value < lo || value > hi {
		return newf(key, "must be between %d and %d, got %d", lo, hi, value)
	}
	return nil
}

// NonNegativeDuration validates that d is zero or more.
func NonNegativeDuration(key string, d time.Duration) error {
	if d < 0 {
		return newf(key, "cannot be negative, got %s", d)
	}
	return nil
}

// ProxyURL validates an optional proxy URL. Empty means no proxy.
func ProxyURL(key, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return tg.NewConfigError(key, "is not a valid URL")
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return newf(key, "unsupported scheme %q, expected http, https or socks5", u.Scheme)
	}
	if u.Host == "" {
		return tg.NewConfigError(key, "missing host")
	}
	return nil
}

// OneOf validates that value is one of allowed, ignoring case.
func OneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return newf(key, "invalid value %q, expected one of %s", value, strings.Join(allowed, ", "))
}
