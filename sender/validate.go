package sender

import (
	"fmt"
	"unicode/utf8"

	"github.com/prilive-com/strmbot/tg"
)

// validateChatID validates a ChatID value.
// Returns nil if valid, error if invalid.
func validateChatID(id tg.ChatID) error {
	if id == nil {
		return tg.NewValidationError("chat_id", "is required")
	}
	switch v := id.(type) {
	case int64:
		if v == 0 {
			return tg.NewValidationError("chat_id", "cannot be zero")
		}
		return nil
	case int:
		if v == 0 {
			return tg.NewValidationError("chat_id", "cannot be zero")
		}
		return nil
	case string:
		if v == "" {
			return tg.NewValidationError("chat_id", "cannot be empty string")
		}
		return nil
	default:
		return tg.NewValidationError("chat_id", fmt.Sprintf("must be int64, int, or string, got %T", id))
	}
}

// validateText checks that text is non-empty and within limit characters.
func validateText(text string, limit int) error {
	if text == "" {
		return tg.NewValidationError("text", "cannot be empty")
	}
	if limit > 0 {
		if n := utf8.RuneCountInString(text); n > limit {
			return tg.NewValidationError("text", fmt.Sprintf("must be at most %d characters, got %d", limit, n))
		}
	}
	return nil
}
