package sender

import (
	"github.com/prilive-com/strmbot/tg"
)

// Aliases so callers of this package need not import tg for error matching.
type (
	APIError        = tg.APIError
	ValidationError = tg.ValidationError
)

var (
	ErrUnauthorized     = tg.ErrUnauthorized
	ErrForbidden        = tg.ErrForbidden
	ErrTooManyRequests  = tg.ErrTooManyRequests
	ErrBotBlocked       = tg.ErrBotBlocked
	ErrChatNotFound     = tg.ErrChatNotFound
	ErrCantParse        = tg.ErrCantParse
	ErrCircuitOpen      = tg.ErrCircuitOpen
	ErrMaxRetries       = tg.ErrMaxRetries
	ErrResponseTooLarge = tg.ErrResponseTooLarge
	ErrInvalidToken     = tg.ErrInvalidToken
)
