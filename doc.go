// Package strmbot is a Telegram bot that turns every text message into a
// .strm placeholder file and confirms it in chat.
//
// # Quick Start
//
//	bot, err := strmbot.New(token,
//	    strmbot.WithPolling(30, 100),
//	    strmbot.WithWorkers(4),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bot.Close()
//
//	h := handler.New(handler.Config{StorageDir: "/srv/alist"}, bot.Sender())
//	err = bot.Run(ctx, h)
//
// # Packages
//
// The Bot API is reached through two packages that can be used alone:
//
//	import "github.com/prilive-com/strmbot/sender"   // getMe, sendMessage
//	import "github.com/prilive-com/strmbot/receiver" // getUpdates long polling
//
// Shared Telegram types live in the tg package.
//
// # Features
//
//   - Circuit breaker with sony/gobreaker
//   - Per-chat and global rate limiting
//   - Retry with exponential backoff and crypto jitter
//   - Bounded concurrent message handling
//   - TLS 1.2+ enforcement and optional HTTP or SOCKS5 proxy
//   - Token auto-redaction in logs and errors
//   - Structured logging with slog
package strmbot
