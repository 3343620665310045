package tg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors - use with errors.Is()
var (
	// API errors
	ErrUnauthorized    = errors.New("strmbot: unauthorized (invalid token)")
	ErrForbidden       = errors.New("strmbot: forbidden")
	ErrNotFound        = errors.New("strmbot: not found")
	ErrTooManyRequests = errors.New("strmbot: too many requests")

	// Chat/User errors
	ErrBotBlocked      = errors.New("strmbot: bot blocked by user")
	ErrBotKicked       = errors.New("strmbot: bot kicked from chat")
	ErrChatNotFound    = errors.New("strmbot: chat not found")
	ErrUserDeactivated = errors.New("strmbot: user deactivated")
	ErrNoRights        = errors.New("strmbot: not enough rights")
	ErrCantParse       = errors.New("strmbot: can't parse entities")

	// Client errors
	ErrCircuitOpen      = errors.New("strmbot: circuit breaker open")
	ErrMaxRetries       = errors.New("strmbot: max retries exceeded")
	ErrResponseTooLarge = errors.New("strmbot: response too large")

	// Validation errors
	ErrInvalidToken  = errors.New("strmbot: invalid bot token format")
	ErrInvalidConfig = errors.New("strmbot: invalid configuration")
)

// APIError represents an error response from Telegram API.
// Use errors.As() to extract details, errors.Is() to match sentinels.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration
	Method      string // API method that failed
	cause       error  // Underlying sentinel for errors.Is()
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("strmbot: %s failed: %s (code=%d, retry_after=%s)",
			e.Method, e.Description, e.Code, e.RetryAfter)
	}
	return fmt.Sprintf("strmbot: %s failed: %s (code=%d)", e.Method, e.Description, e.Code)
}

// Unwrap returns the underlying sentinel error for errors.Is() support.
func (e *APIError) Unwrap() error { return e.cause }

// IsRetryable returns true if the error is temporary and may succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.Code == 429 || e.IsServerError()
}

// IsServerError returns true for 5xx gateway and server failures.
func (e *APIError) IsServerError() bool {
	return e.Code >= 500 && e.Code <= 504
}

// NewAPIError creates an APIError with automatic sentinel detection.
func NewAPIError(method string, code int, description string) *APIError {
	return &APIError{
		Code:        code,
		Description: description,
		Method:      method,
		cause:       DetectSentinel(code, description),
	}
}

// NewAPIErrorWithRetry creates an APIError with retry information.
func NewAPIErrorWithRetry(method string, code int, description string, retryAfter time.Duration) *APIError {
	e := NewAPIError(method, code, description)
	e.RetryAfter = retryAfter
	return e
}

// DetectSentinel maps Telegram error codes/descriptions to sentinel errors.
// Description matches win over status codes since they are more specific.
func DetectSentinel(code int, desc string) error {
	descLower := strings.ToLower(desc)
	switch {
	case strings.Contains(descLower, "can't parse entities"):
		return ErrCantParse
	case strings.Contains(descLower, "bot was blocked"):
		return ErrBotBlocked
	case strings.Contains(descLower, "bot was kicked"):
		return ErrBotKicked
	case strings.Contains(descLower, "chat not found"):
		return ErrChatNotFound
	case strings.Contains(descLower, "user is deactivated"):
		return ErrUserDeactivated
	case strings.Contains(descLower, "not enough rights"):
		return ErrNoRights
	}

	switch code {
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrTooManyRequests
	}

	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("strmbot: validation: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigError represents a configuration error.
// It matches ErrInvalidConfig via errors.Is.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("strmbot: config: %s - %s", e.Key, e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// NewConfigError creates a new ConfigError.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}
