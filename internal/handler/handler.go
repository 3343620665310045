// Package handler turns an incoming text message into a .strm file and
// answers the sender with a MarkdownV2 confirmation.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/strm"
	"github.com/prilive-com/strmbot/sender"
	"github.com/prilive-com/strmbot/tg"
)

// Input rejections. They are answered in chat and never escalated.
var (
	ErrEmptyInput      = errors.New("empty input")
	ErrInvalidFilename = errors.New("invalid filename (empty after sanitizing)")
	ErrFilenameTooLong = errors.New("filename too long")
)

// DefaultMaxNameLength leaves room for the extension under a 255 byte limit.
const DefaultMaxNameLength = 255 - len(strm.Extension)

// Sender delivers replies.
type Sender interface {
	SendMessage(ctx context.Context, req sender.SendMessageRequest) (*tg.Message, error)
}

// Config controls file creation and reply delivery.
type Config struct {
	// StorageDir is the Target Folder every file is written to.
	StorageDir string
	// MaxNameLength bounds the sanitized name in characters.
	MaxNameLength int
	// TokenLength is the size of the random file content.
	TokenLength int
	// Retry wraps every reply send. Its Logger is replaced by the
	// handler's logger scoped to the message.
	Retry resilience.Policy
}

// Result describes a created file.
type Result struct {
	Name     string // sanitized name
	Filename string // name plus extension
	Content  string
	Dir      string
	Path     string
}

// Handler processes text messages.
type Handler struct {
	cfg      Config
	writer   *strm.Writer
	newToken func(n int) string
	logger   *slog.Logger
	sender   Sender
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTokenGenerator replaces the random content source.
func WithTokenGenerator(fn func(n int) string) Option {
	return func(h *Handler) {
		h.newToken = fn
	}
}

// WithWriter replaces the file writer, e.g. to change permissions.
func WithWriter(w *strm.Writer) Option {
	return func(h *Handler) {
		h.writer = w
	}
}

// New creates a Handler replying through s.
func New(cfg Config, s Sender, opts ...Option) *Handler {
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = DefaultMaxNameLength
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = strm.DefaultTokenLength
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "reply"
	}

	h := &Handler{
		cfg:      cfg,
		writer:   strm.NewWriter(cfg.StorageDir),
		newToken: strm.NewToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.sender = s
	return h
}

// HandleMessage creates the file for msg and replies with the outcome.
// Messages without text are ignored. The returned error is non-nil only
// when the reply could not be delivered.
func (h *Handler) HandleMessage(ctx context.Context, msg *tg.Message) error {
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return nil
	}

	logger := h.logger.With(
		"correlation_id", uuid.NewString(),
		"chat_id", msg.Chat.ID,
		"message_id", msg.MessageID,
	)

	res, err := h.Create(msg.Text)
	var text string
	switch {
	case err == nil:
		logger.Info("file created", "path", res.Path)
		text = successText(res)
	case isRejection(err):
		logger.Info("input rejected", "reason", err.Error())
		text = rejectionText(err)
	default:
		logger.Error("file creation failed", "error", err)
		text = failureText(err)
	}

	if err := h.reply(ctx, logger, msg, text); err != nil {
		logger.Error("reply failed", "error", err)
		return fmt.Errorf("reply to message %d: %w", msg.MessageID, err)
	}
	return nil
}

// Create runs the sanitize, generate and write pipeline for text.
// Input rejections match ErrEmptyInput, ErrInvalidFilename or
// ErrFilenameTooLong; write failures are *strm.WriteError.
func (h *Handler) Create(text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyInput
	}

	name := strm.Sanitize(text)
	if name == "" {
		return Result{}, ErrInvalidFilename
	}
	if utf8.RuneCountInString(name) > h.cfg.MaxNameLength {
		return Result{}, fmt.Errorf("%w (max %d characters)", ErrFilenameTooLong, h.cfg.MaxNameLength)
	}

	res := Result{
		Name:     name,
		Filename: strm.Filename(name),
		Content:  h.newToken(h.cfg.TokenLength),
		Dir:      h.writer.Dir,
	}
	path, err := h.writer.Write(res.Filename, res.Content)
	if err != nil {
		return Result{}, err
	}
	res.Path = path
	return res, nil
}

func (h *Handler) reply(ctx context.Context, logger *slog.Logger, msg *tg.Message, text string) error {
	req := sender.SendMessageRequest{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            text,
		ParseMode:       tg.ParseModeMarkdownV2,
	}
	if msg.Chat.Type.IsGroup() {
		req.ReplyParameters = &sender.ReplyParameters{
			MessageID:                msg.MessageID,
			AllowSendingWithoutReply: true,
		}
	}

	policy := h.cfg.Retry
	policy.Logger = logger
	send := resilience.Wrap(policy, func(ctx context.Context) (*tg.Message, error) {
		return h.sender.SendMessage(ctx, req)
	})
	_, err := send(ctx)
	return err
}

func isRejection(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidFilename) ||
		errors.Is(err, ErrFilenameTooLong)
}
