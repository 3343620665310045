package tg

import "log/slog"

// Redacted replaces secrets in every textual rendering.
const Redacted = "[REDACTED]"

// SecretToken wraps a bot token to prevent accidental logging.
// Implements fmt.Stringer, fmt.GoStringer, slog.LogValuer, and encoding.TextMarshaler.
type SecretToken string

// Value returns the actual token value.
// Only use this when building Bot API URLs.
func (s SecretToken) Value() string { return string(s) }

// String returns a redacted placeholder (fmt.Stringer).
func (s SecretToken) String() string { return Redacted }

// GoString returns redacted for %#v (fmt.GoStringer).
func (s SecretToken) GoString() string { return `tg.SecretToken("` + Redacted + `")` }

// LogValue keeps the token out of slog output, including JSON handlers.
func (s SecretToken) LogValue() slog.Value {
	return slog.StringValue(Redacted)
}

// MarshalText returns redacted bytes so config dumps never carry the token.
func (s SecretToken) MarshalText() ([]byte, error) {
	return []byte(Redacted), nil
}

// IsEmpty returns true if the token is empty.
func (s SecretToken) IsEmpty() bool {
	return s == ""
}
