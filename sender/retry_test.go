package sender_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/strmbot/internal/testutil"
	"github.com/prilive-com/strmbot/sender"
)

func hello() sender.SendMessageRequest {
	return sender.SendMessageRequest{ChatID: testutil.TestChatID, Text: "Hello"}
}

func TestRetry_429WithRetryAfter(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			testutil.ReplyRateLimit(w, 5)
			return
		}
		testutil.ReplyMessage(w, 123)
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper, sender.WithRetries(3))

	msg, err := client.SendMessage(context.Background(), hello())

	require.NoError(t, err)
	assert.Equal(t, 123, msg.MessageID)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 1, sleeper.CallCount())
	assert.Equal(t, 5*time.Second, sleeper.LastCall(), "should sleep for retry_after")
}

func TestRetry_429HeaderFallback(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			testutil.ReplyRateLimitHeaderOnly(w, 3)
			return
		}
		testutil.ReplyMessage(w, 456)
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper)

	msg, err := client.SendMessage(context.Background(), hello())

	require.NoError(t, err)
	assert.Equal(t, 456, msg.MessageID)
	assert.Equal(t, 3*time.Second, sleeper.LastCall())
}

func TestRetry_5xxWithExponentialBackoff(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			testutil.ReplyServerError(w, 502, "Bad Gateway")
			return
		}
		testutil.ReplyMessage(w, 789)
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper, sender.WithRetries(3))

	msg, err := client.SendMessage(context.Background(), hello())

	require.NoError(t, err)
	assert.Equal(t, 789, msg.MessageID)
	require.Equal(t, 2, sleeper.CallCount())

	// base 1s, factor 2, jitter 20%
	assert.InDelta(t, float64(time.Second), float64(sleeper.CallAt(0)), float64(200*time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(sleeper.CallAt(1)), float64(400*time.Millisecond))
}

func TestRetry_NoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		testutil.ReplyBadRequest(w, "can't parse entities: Character '.' is reserved")
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper, sender.WithRetries(3))

	_, err := client.SendMessage(context.Background(), hello())

	require.Error(t, err)
	assert.ErrorIs(t, err, sender.ErrCantParse)
	assert.NotErrorIs(t, err, sender.ErrMaxRetries)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Zero(t, sleeper.CallCount())
}

func TestRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		testutil.ReplyServerError(w, 500, "Internal Server Error")
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper, sender.WithRetries(2))

	_, err := client.SendMessage(context.Background(), hello())

	require.Error(t, err)
	assert.ErrorIs(t, err, sender.ErrMaxRetries)

	var apiErr *sender.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Code)
	assert.Equal(t, int32(3), attempts.Load(), "1 initial + 2 retries")
	assert.Equal(t, 2, sleeper.CallCount())
}

func TestRetry_NoRetriesConfigured(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		testutil.ReplyServerError(w, 503, "Service Unavailable")
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper, sender.WithRetries(0))

	_, err := client.SendMessage(context.Background(), hello())

	assert.ErrorIs(t, err, sender.ErrMaxRetries)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Zero(t, sleeper.CallCount())
}

func TestRetry_ContextCancelStopsRetry(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyServerError(w, 502, "Bad Gateway")
	})

	client := testutil.NewRetryTestClient(t, server.BaseURL(), nil,
		sender.WithRetries(5),
		sender.WithSleeper(cancelSleeper{}),
	)

	_, err := client.SendMessage(context.Background(), hello())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_ResponseHeaderTimeout(t *testing.T) {
	var attempts atomic.Int32

	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
			return
		}
		testutil.ReplyMessage(w, 321)
	})

	sleeper := &testutil.FakeSleeper{}
	client := testutil.NewRetryTestClient(t, server.BaseURL(), sleeper,
		sender.WithRetries(2),
		sender.WithTimeouts(time.Second, 100*time.Millisecond),
	)

	msg, err := client.SendMessage(context.Background(), hello())

	require.NoError(t, err)
	assert.Equal(t, 321, msg.MessageID)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 1, sleeper.CallCount())
}

// cancelSleeper behaves like a sleep interrupted by cancellation.
type cancelSleeper struct{}

func (cancelSleeper) Sleep(context.Context, time.Duration) error { return context.Canceled }
