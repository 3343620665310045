package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/strmbot/internal/httpclient"
	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/scrub"
	"github.com/prilive-com/strmbot/tg"
)

const (
	maxPollResponseSize = 50 << 20 // 50MB for updates
)

// PollingClient polls Telegram's getUpdates API for updates.
type PollingClient struct {
	token   tg.SecretToken
	baseURL string
	updates chan<- tg.Update
	logger  *slog.Logger

	timeout              int
	limit                int
	maxErrors            int
	allowedUpdates       []string
	deleteWebhookOnStart bool
	backoff              resilience.Backoff

	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*tg.Response]

	running           atomic.Bool
	offset            atomic.Int64
	consecutiveErrors atomic.Int32

	mu     sync.Mutex // guards cancel, done, err
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	wg     sync.WaitGroup
}

// PollingOption configures the PollingClient.
type PollingOption func(*PollingClient)

// WithPollingHTTPClient sets a custom HTTP client.
func WithPollingHTTPClient(client *http.Client) PollingOption {
	return func(c *PollingClient) {
		c.client = client
	}
}

// WithPollingMaxErrors sets maximum consecutive errors before stopping.
func WithPollingMaxErrors(n int) PollingOption {
	return func(c *PollingClient) {
		c.maxErrors = n
	}
}

// WithPollingDeleteWebhook enables webhook deletion before starting.
func WithPollingDeleteWebhook(enabled bool) PollingOption {
	return func(c *PollingClient) {
		c.deleteWebhookOnStart = enabled
	}
}

// WithPollingBackoff replaces the wait strategy between failed polls.
func WithPollingBackoff(b resilience.Backoff) PollingOption {
	return func(c *PollingClient) {
		c.backoff = b
	}
}

// NewPollingClient creates a long polling client that delivers to updates.
func NewPollingClient(
	token tg.SecretToken,
	updates chan<- tg.Update,
	logger *slog.Logger,
	cfg Config,
	opts ...PollingOption,
) (*PollingClient, error) {
	if token.IsEmpty() {
		return nil, ErrTokenRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tg.DefaultAPIBaseURL
	}

	c := &PollingClient{
		token:                token,
		baseURL:              baseURL,
		updates:              updates,
		logger:               logger,
		timeout:              cfg.PollingTimeout,
		limit:                cfg.PollingLimit,
		maxErrors:            cfg.PollingMaxErrors,
		allowedUpdates:       cfg.AllowedUpdates,
		deleteWebhookOnStart: cfg.DeleteWebhookFirst,
		backoff: resilience.ExponentialBackoff(
			cfg.RetryInitialDelay, cfg.RetryMaxDelay, cfg.RetryBackoffFactor, 0.25),
	}

	c.breaker = gobreaker.NewCircuitBreaker[*tg.Response](gobreaker.Settings{
		Name:        "strmbot-polling",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		client, err := pollingHTTPClient(cfg.HTTP, cfg.PollingTimeout)
		if err != nil {
			return nil, fmt.Errorf("receiver: %w", err)
		}
		c.client = client
	}

	return c, nil
}

// pollingHTTPClient stretches the timeouts so a long poll is never cut short.
func pollingHTTPClient(cfg httpclient.Config, timeoutSeconds int) (*http.Client, error) {
	poll := time.Duration(timeoutSeconds) * time.Second
	cfg.RequestTimeout = poll + 10*time.Second
	cfg.ReadTimeout = max(cfg.ReadTimeout, poll+5*time.Second)
	return httpclient.New(cfg)
}

// Start deletes the webhook if configured and begins polling in the
// background. Polling ends when ctx is cancelled, Stop is called, the token
// is rejected, or the consecutive error limit is reached.
func (c *PollingClient) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if c.deleteWebhookOnStart {
		c.logger.Info("deleting existing webhook")
		if err := DeleteWebhook(ctx, c.client, c.baseURL, c.token, false); err != nil {
			c.running.Store(false)
			return fmt.Errorf("failed to delete webhook: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel, c.done, c.err = cancel, done, nil
	c.mu.Unlock()

	c.wg.Go(func() {
		defer close(done)
		defer c.running.Store(false)
		defer cancel()
		c.pollLoop(loopCtx)
	})

	c.logger.Info("long polling started",
		"timeout", c.timeout,
		"limit", c.limit,
		"max_errors", c.maxErrors,
	)

	return nil
}

// Stop ends polling, aborting any in-flight long poll, and waits for the
// loop to exit. It is safe to call more than once and after the loop
// stopped on its own.
func (c *PollingClient) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.client.CloseIdleConnections()
}

// Done is closed when the current polling loop exits. It is nil before
// the first Start.
func (c *PollingClient) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns why the loop stopped by itself, or nil if it was stopped
// through ctx or Stop.
func (c *PollingClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *PollingClient) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Running returns true if polling is active.
func (c *PollingClient) Running() bool {
	return c.running.Load()
}

// IsHealthy reports whether polling runs below the error limit.
func (c *PollingClient) IsHealthy() bool {
	if c.maxErrors == 0 {
		return c.running.Load()
	}
	return c.running.Load() && int(c.consecutiveErrors.Load()) < c.maxErrors
}

// ConsecutiveErrors returns the current error count.
func (c *PollingClient) ConsecutiveErrors() int32 {
	return c.consecutiveErrors.Load()
}

// Offset returns the current update offset.
func (c *PollingClient) Offset() int64 {
	return c.offset.Load()
}

func (c *PollingClient) pollLoop(ctx context.Context) {
	defer c.logger.Info("long polling stopped", "offset", c.offset.Load())

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := c.fetchUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, tg.ErrUnauthorized) {
				c.logger.Error("bot token rejected, polling stopped", "error", err)
				c.fail(err)
				return
			}

			errCount := c.consecutiveErrors.Add(1)
			wait := c.retryWait(errCount, err)
			c.logger.Error("fetch updates failed",
				"error", err,
				"consecutive_errors", errCount,
				"retry_delay", wait,
			)

			if c.maxErrors > 0 && int(errCount) >= c.maxErrors {
				c.logger.Error("max consecutive errors exceeded", "max_errors", c.maxErrors)
				c.fail(fmt.Errorf("%w (%d): %w", ErrTooManyErrors, errCount, err))
				return
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				continue
			}
		}

		c.consecutiveErrors.Store(0)

		// Offset advances only after the update is handed over. Updates still
		// waiting in the batch when ctx ends are redelivered by Telegram;
		// those already in the channel belong to the consumer.
		for _, update := range updates {
			select {
			case c.updates <- update:
				if int64(update.UpdateID) >= c.offset.Load() {
					c.offset.Store(int64(update.UpdateID) + 1)
				}
				c.logger.Debug("update delivered", "update_id", update.UpdateID)
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *PollingClient) retryWait(errCount int32, err error) time.Duration {
	var apiErr *tg.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return c.backoff(int(errCount))
}

func (c *PollingClient) fetchUpdates(ctx context.Context) ([]tg.Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(c.timeout))
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("offset", strconv.FormatInt(c.offset.Load(), 10))

	if len(c.allowedUpdates) > 0 {
		if encoded, err := json.Marshal(c.allowedUpdates); err == nil {
			params.Set("allowed_updates", string(encoded))
		}
	}

	apiURL := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token.Value(), params.Encode())

	resp, err := c.breaker.Execute(func() (*tg.Response, error) {
		return c.doGetUpdates(ctx, apiURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("getUpdates: %w: %w", tg.ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	var updates []tg.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: failed to parse updates: %w", err)
	}
	return updates, nil
}

func (c *PollingClient) doGetUpdates(ctx context.Context, apiURL string) (*tg.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", scrub.TokenFromError(err, c.token))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", scrub.TokenFromError(err, c.token))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPollResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxPollResponseSize {
		return nil, tg.ErrResponseTooLarge
	}

	var apiResp tg.Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := apiResp.Err("getUpdates", resp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

// isBreakerSuccess keeps 4xx answers and cancellations from tripping the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *tg.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 400 && apiErr.Code < 500
	}
	if resilience.IsTimeout(err) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
