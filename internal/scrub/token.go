// Package scrub removes secrets from errors and log values.
package scrub

import (
	"net/url"
	"strings"

	"github.com/prilive-com/strmbot/tg"
)

// TokenFromError removes the bot token from error messages.
// http.Client.Do includes the request URL (which embeds the token) in its
// error strings. The error chain is preserved for errors.Is/As.
func TokenFromError(err error, token tg.SecretToken) error {
	if err == nil {
		return nil
	}
	tokenVal := token.Value()
	if tokenVal == "" {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, tokenVal) {
		return &scrubbedError{
			msg: strings.ReplaceAll(msg, tokenVal, tg.Redacted),
			err: err,
		}
	}
	return err
}

// URL returns raw with any userinfo password replaced, suitable for logging
// a proxy address. Unparseable input is fully redacted.
func URL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return tg.Redacted
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
