package receiver

import "errors"

// Sentinel errors
var (
	ErrAlreadyRunning = errors.New("strmbot/receiver: already running")
	ErrTokenRequired  = errors.New("strmbot/receiver: bot token required")
	ErrTooManyErrors  = errors.New("strmbot/receiver: too many consecutive errors")
)
