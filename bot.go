package strmbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prilive-com/strmbot/receiver"
	"github.com/prilive-com/strmbot/sender"
	"github.com/prilive-com/strmbot/tg"
)

// DefaultShutdownGrace is how long in-flight handlers keep a live context
// after Run is cancelled.
const DefaultShutdownGrace = 30 * time.Second

// ErrBotClosed is returned by Run after Close.
var ErrBotClosed = errors.New("strmbot: bot closed")

// MessageHandler processes one text message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *tg.Message) error
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *tg.Message) error

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg *tg.Message) error {
	return f(ctx, msg)
}

// Bot combines the long polling receiver and the sender, and dispatches
// text messages to a handler.
type Bot struct {
	logger   *slog.Logger
	receiver *receiver.PollingClient
	sender   *sender.Client
	updates  chan tg.Update
	workers  int

	shutdownGrace time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type botConfig struct {
	senderConfig   sender.Config
	receiverConfig receiver.Config
	senderOpts     []sender.Option
	pollingOpts    []receiver.PollingOption
	workers        int
	shutdownGrace  time.Duration
	logger         *slog.Logger
}

// Option configures the Bot.
type Option func(*botConfig)

// WithPolling sets the long poll timeout in seconds and the batch size.
func WithPolling(timeout, limit int) Option {
	return func(c *botConfig) {
		c.receiverConfig.PollingTimeout = timeout
		c.receiverConfig.PollingLimit = limit
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *botConfig) {
		c.logger = logger
	}
}

// WithWorkers bounds how many messages are handled at once.
func WithWorkers(n int) Option {
	return func(c *botConfig) {
		c.workers = n
	}
}

// WithShutdownGrace sets how long handlers may keep running after Run is
// cancelled before their context is cancelled too. Default 30s.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *botConfig) {
		c.shutdownGrace = d
	}
}

// WithProxy routes all Bot API traffic through proxyURL.
func WithProxy(proxyURL string) Option {
	return func(c *botConfig) {
		c.senderConfig.HTTP.ProxyURL = proxyURL
		c.receiverConfig.HTTP.ProxyURL = proxyURL
	}
}

// WithTimeouts sets the dial and response header timeouts. The receiver
// stretches the header timeout to cover its long poll.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *botConfig) {
		c.senderConfig.HTTP.ConnectTimeout = connect
		c.senderConfig.HTTP.ReadTimeout = read
		c.receiverConfig.HTTP.ConnectTimeout = connect
		c.receiverConfig.HTTP.ReadTimeout = read
	}
}

// WithBaseURL points both clients at another Bot API server.
func WithBaseURL(url string) Option {
	return func(c *botConfig) {
		c.senderConfig.BaseURL = url
		c.receiverConfig.BaseURL = url
	}
}

// WithRetries sets max API-level retry attempts of the sender.
func WithRetries(max int) Option {
	return func(c *botConfig) {
		c.senderConfig.MaxRetries = max
	}
}

// WithRateLimit sets the sender's global rate limit.
func WithRateLimit(globalRPS float64, burst int) Option {
	return func(c *botConfig) {
		c.senderConfig.GlobalRPS = globalRPS
		c.senderConfig.GlobalBurst = burst
	}
}

// WithPollingMaxErrors sets max consecutive polling errors. 0 is unlimited.
func WithPollingMaxErrors(max int) Option {
	return func(c *botConfig) {
		c.receiverConfig.PollingMaxErrors = max
	}
}

// WithDeleteWebhook deletes an existing webhook before polling.
func WithDeleteWebhook(delete bool) Option {
	return func(c *botConfig) {
		c.receiverConfig.DeleteWebhookFirst = delete
	}
}

// WithUpdateBufferSize sets the updates channel buffer size.
func WithUpdateBufferSize(size int) Option {
	return func(c *botConfig) {
		c.receiverConfig.UpdateBufferSize = size
	}
}

// WithSenderOptions passes options through to sender.NewFromConfig.
func WithSenderOptions(opts ...sender.Option) Option {
	return func(c *botConfig) {
		c.senderOpts = append(c.senderOpts, opts...)
	}
}

// WithPollingOptions passes options through to receiver.NewPollingClient.
func WithPollingOptions(opts ...receiver.PollingOption) Option {
	return func(c *botConfig) {
		c.pollingOpts = append(c.pollingOpts, opts...)
	}
}

// New creates a Bot.
func New(token string, opts ...Option) (*Bot, error) {
	if token == "" {
		return nil, tg.ErrInvalidToken
	}

	cfg := botConfig{
		senderConfig:   sender.DefaultConfig(),
		receiverConfig: receiver.DefaultConfig(),
		workers:        4,
		shutdownGrace:  DefaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.receiverConfig.UpdateBufferSize < 0 {
		cfg.receiverConfig.UpdateBufferSize = 0
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	secretToken := tg.SecretToken(token)
	cfg.senderConfig.Token = secretToken

	senderClient, err := sender.NewFromConfig(cfg.senderConfig,
		append([]sender.Option{sender.WithLogger(logger)}, cfg.senderOpts...)...)
	if err != nil {
		return nil, err
	}

	updates := make(chan tg.Update, cfg.receiverConfig.UpdateBufferSize)

	poller, err := receiver.NewPollingClient(secretToken, updates, logger, cfg.receiverConfig, cfg.pollingOpts...)
	if err != nil {
		senderClient.Close()
		return nil, err
	}

	return &Bot{
		logger:   logger,
		receiver: poller,
		sender:   senderClient,
		updates:  updates,
		workers:  cfg.workers,

		shutdownGrace: cfg.shutdownGrace,
	}, nil
}

// Run polls for updates and hands every plain text message (bot commands
// excluded) to h, running at most WithWorkers handlers at once. Handler
// errors are logged and never stop the loop.
//
// Handlers do not see ctx's cancellation directly. When ctx is cancelled
// or polling stops, Run stops the receiver, dispatches every update it had
// already accepted, and gives handlers the shutdown grace period before
// cancelling their context. It returns nil after a cancellation, or the
// receiver's error if polling stopped by itself.
func (b *Bot) Run(ctx context.Context, h MessageHandler) error {
	if b.closed.Load() {
		return ErrBotClosed
	}
	if err := b.receiver.Start(ctx); err != nil {
		return fmt.Errorf("start polling: %w", err)
	}
	defer b.receiver.Stop()

	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()

	var g errgroup.Group
	g.SetLimit(b.workers)
	submit := func(update tg.Update) {
		msg := update.TextMessage()
		if msg == nil {
			b.logger.Debug("update skipped", "update_id", update.UpdateID)
			return
		}
		g.Go(func() error {
			b.dispatch(handlerCtx, h, update.UpdateID, msg)
			return nil
		})
	}

	done := b.receiver.Done()
	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-done:
			runErr = b.receiver.Err()
			break loop
		case update := <-b.updates:
			submit(update)
		}
	}

	// Updates in the buffer are already acknowledged to Telegram.
	b.receiver.Stop()
	for drained := false; !drained; {
		select {
		case update := <-b.updates:
			submit(update)
		default:
			drained = true
		}
	}

	grace := time.AfterFunc(b.shutdownGrace, cancelHandlers)
	defer grace.Stop()
	_ = g.Wait()
	return runErr
}

func (b *Bot) dispatch(ctx context.Context, h MessageHandler, updateID int, msg *tg.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "update_id", updateID, "panic", r)
		}
	}()

	if err := h.HandleMessage(ctx, msg); err != nil {
		b.logger.Error("handler failed",
			"update_id", updateID,
			"chat_id", msg.ChatIDString(),
			"error", err,
		)
	}
}

// Stop stops polling. Run returns once in-flight handlers finish.
func (b *Bot) Stop() {
	b.receiver.Stop()
}

// Close stops polling and releases the sender. It is safe to call more
// than once and from several goroutines.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.receiver.Stop()
		b.closeErr = b.sender.Close()
	})
	return b.closeErr
}

// IsHealthy reports whether polling runs below its error limit.
func (b *Bot) IsHealthy() bool {
	return b.receiver.IsHealthy()
}

// Sender returns the underlying sender client.
func (b *Bot) Sender() *sender.Client {
	return b.sender
}
