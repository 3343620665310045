package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/strmbot/internal/httpclient"
	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/scrub"
	"github.com/prilive-com/strmbot/tg"
)

const maxResponseSize = 10 << 20 // 10MB

// Sleeper abstracts time-based waiting for testing.
type Sleeper = resilience.Sleeper

// Client sends messages through the Telegram Bot API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	throttle   *throttle
	breaker    *gobreaker.CircuitBreaker[*tg.Response]
	retry      resilience.Policy

	breakerSettings CircuitBreakerSettings
	sleeper         Sleeper
	closeOnce       sync.Once
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client. It takes precedence over WithProxy
// and the timeouts in Config.HTTP.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithProxy routes API calls through the given proxy URL.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		c.config.HTTP.ProxyURL = proxyURL
	}
}

// WithTimeouts sets the dial and response-header timeouts.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) {
		c.config.HTTP.ConnectTimeout = connect
		c.config.HTTP.ReadTimeout = read
	}
}

// WithRateLimit sets the global send rate.
func WithRateLimit(globalRPS float64, burst int) Option {
	return func(c *Client) {
		c.config.GlobalRPS = globalRPS
		c.config.GlobalBurst = burst
	}
}

// WithRetries sets how many times a 429 or 5xx response is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.config.MaxRetries = n
	}
}

// WithBaseURL sets the API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.config.BaseURL = url
	}
}

// WithSleeper sets a custom sleeper for retry timing (useful for testing).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleeper = s
	}
}

// WithPerChatRateLimit sets per-chat rate limiting parameters.
func WithPerChatRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.config.PerChatRPS = rps
		c.config.PerChatBurst = burst
	}
}

// WithGroupRateLimit sets the per-chat rate limit for group chats (negative chat IDs).
// Telegram limits groups to ~20 messages/minute. Default: 0.33 RPS, burst 2.
func WithGroupRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.config.GroupRPS = rps
		c.config.GroupBurst = burst
	}
}

// WithCircuitBreakerSettings configures the circuit breaker.
func WithCircuitBreakerSettings(settings CircuitBreakerSettings) Option {
	return func(c *Client) {
		c.breakerSettings = settings
	}
}

// New creates a new Client with the given token and options.
func New(token string, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Token = tg.SecretToken(token)
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a Client from a Config. Call Close when done.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Token.IsEmpty() {
		return nil, ErrInvalidToken
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.httpClient == nil {
		hc, err := httpclient.New(c.config.HTTP)
		if err != nil {
			return nil, fmt.Errorf("sender: %w", err)
		}
		c.httpClient = hc
	}

	// API-level retry: MaxRetries extra attempts after the first, waiting
	// for retry_after when Telegram supplies one.
	c.retry = resilience.Policy{
		MaxAttempts: c.config.MaxRetries + 1,
		Backoff: resilience.ExponentialBackoff(
			c.config.RetryBaseWait, c.config.RetryMaxWait, c.config.RetryFactor, 0.2),
		Retryable: isRetryable,
		Delay:     retryAfter,
		Sleeper:   c.sleeper,
		Logger:    c.logger,
		LogLevel:  slog.LevelDebug,
	}
	c.breaker = newBreaker(c.breakerSettings, c.logger)
	c.throttle = newThrottle(c.config)

	return c, nil
}

// Close stops background work and releases idle connections.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.throttle.close()
		c.httpClient.CloseIdleConnections()
	})
	return nil
}

// ChatLimiterCount returns the number of active per-chat limiters.
func (c *Client) ChatLimiterCount() int {
	return c.throttle.size()
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*tg.Message, error) {
	if err := validateChatID(req.ChatID); err != nil {
		return nil, err
	}
	if err := validateText(req.Text, c.config.MaxTextLength); err != nil {
		return nil, err
	}
	return call[tg.Message](ctx, c, "sendMessage", req, extractChatID(req.ChatID))
}

// GetMe returns basic information about the bot.
func (c *Client) GetMe(ctx context.Context) (*tg.User, error) {
	return call[tg.User](ctx, c, "getMe", struct{}{}, "")
}

// call runs one Bot API method through the limiter, the breaker and the
// retry policy, and decodes its result into T.
func call[T any](ctx context.Context, c *Client, method string, payload any, chatID string) (*T, error) {
	policy := c.retry
	policy.Name = method

	result, err := resilience.Do(ctx, policy, func(ctx context.Context) (*T, error) {
		if err := c.throttle.wait(ctx, chatID); err != nil {
			return nil, err
		}
		resp, err := c.breaker.Execute(func() (*tg.Response, error) {
			return c.doRequest(ctx, method, payload)
		})
		if err != nil {
			return nil, breakerError(err)
		}
		return parseResult[T](resp)
	})
	if errors.Is(err, resilience.ErrRetryBudgetExhausted) {
		return nil, fmt.Errorf("%w: %w", ErrMaxRetries, err)
	}
	return result, err
}

func (c *Client) doRequest(ctx context.Context, method string, payload any) (*tg.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := c.config.BaseURL + "/bot" + c.config.Token.Value() + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", scrub.TokenFromError(err, c.config.Token))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", scrub.TokenFromError(err, c.config.Token))
	}
	defer resp.Body.Close()

	// One byte past the limit detects overflow.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if len(raw) > maxResponseSize {
		return nil, ErrResponseTooLarge
	}

	var apiResp tg.Response
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", method, err)
	}
	if err := apiResp.Err(method, resp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

// retryAfter returns the wait Telegram asked for, or 0.
func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return resilience.IsTimeout(err)
}

func extractChatID(chatID tg.ChatID) string {
	switch v := chatID.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func parseResult[T any](resp *tg.Response) (*T, error) {
	var result T
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &result, nil
}
