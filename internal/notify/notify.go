// Package notify announces a successful start to the administrator chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/sender"
	"github.com/prilive-com/strmbot/tg"
)

// Identity resolves the bot's own account.
type Identity interface {
	GetMe(ctx context.Context) (*tg.User, error)
}

// Sender delivers the notice.
type Sender interface {
	SendMessage(ctx context.Context, req sender.SendMessageRequest) (*tg.Message, error)
}

// Config describes where and what to announce.
type Config struct {
	AdminChatID int64 // 0 skips the notice
	Version     string
	StorageDir  string
	Retry       resilience.Policy
	Logger      *slog.Logger
}

// StartupPolicy is the retry policy for the startup calls: 5 attempts.
func StartupPolicy() resilience.Policy {
	p := resilience.DefaultPolicy("startup")
	p.MaxAttempts = 5
	return p
}

// Notifier sends the startup notice.
type Notifier struct {
	identity Identity
	sender   Sender
	cfg      Config
	logger   *slog.Logger
}

// New creates a Notifier.
func New(identity Identity, s Sender, cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "startup"
	}
	cfg.Retry.Logger = logger
	return &Notifier{identity: identity, sender: s, cfg: cfg, logger: logger}
}

// Notify resolves the bot identity, logs it and sends the notice to the
// admin chat. Both calls go through the retry policy. Callers treat the
// error as a warning; the bot keeps serving.
func (n *Notifier) Notify(ctx context.Context) error {
	me, err := resilience.Do(ctx, n.cfg.Retry, n.identity.GetMe)
	if err != nil {
		return fmt.Errorf("notify: get bot identity: %w", err)
	}

	n.logger.Info("bot started",
		"username", me.Username,
		"id", me.ID,
		"version", n.cfg.Version,
		"storage_dir", n.cfg.StorageDir,
	)

	if n.cfg.AdminChatID == 0 {
		n.logger.Info("admin chat not configured, startup notice skipped")
		return nil
	}

	req := sender.SendMessageRequest{
		ChatID:    n.cfg.AdminChatID,
		Text:      StartupText(me, n.cfg.Version, n.cfg.StorageDir),
		ParseMode: tg.ParseModeMarkdownV2,
	}
	_, err = resilience.Do(ctx, n.cfg.Retry, func(ctx context.Context) (*tg.Message, error) {
		return n.sender.SendMessage(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("notify: send startup notice: %w", err)
	}
	return nil
}

// StartupText renders the MarkdownV2 startup notice.
func StartupText(me *tg.User, version, storageDir string) string {
	var b strings.Builder
	b.WriteString("🤖 *Bot started* \\!\n")
	fmt.Fprintf(&b, "▪ Username: @%s\n", tg.EscapeMarkdownV2(me.Username))
	fmt.Fprintf(&b, "▪ ID: `%s`\n", tg.EscapeMarkdownV2(strconv.FormatInt(me.ID, 10)))
	fmt.Fprintf(&b, "▪ Version: `%s`\n", tg.EscapeMarkdownV2(version))
	fmt.Fprintf(&b, "▪ Storage: `%s`", tg.EscapeMarkdownV2(storageDir))
	return b.String()
}
