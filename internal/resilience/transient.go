package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/prilive-com/strmbot/tg"
)

// IsTimeout reports whether err is a transport timeout: a dial, TLS or
// response-header timeout, or http.Client.Timeout. These also match
// context.DeadlineExceeded, so they are looked up by type first. A bare
// context deadline is not a transport timeout.
func IsTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout() && !errors.Is(err, context.DeadlineExceeded)
}

// IsTransient reports whether err looks like a network hiccup worth
// retrying: timeouts, dial and connection failures, truncated responses,
// and Bot API server errors. Cancellation and a bare context deadline are
// never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *tg.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}

	// An open breaker fails fast until its own timeout elapses.
	if errors.Is(err, tg.ErrCircuitOpen) {
		return false
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}
