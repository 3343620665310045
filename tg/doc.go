// Package tg provides the Telegram types shared by receiver and sender.
//
// This package contains:
//   - The subset of Bot API types the bot reads (Update, Message, User, Chat)
//   - Error types and sentinel errors
//   - SecretToken for safe token handling
//   - Parse modes and MarkdownV2 escaping
//
// # Usage
//
//	import "github.com/prilive-com/strmbot/tg"
//
//	text := "*Saved* `" + tg.EscapeMarkdownV2(name) + "`"
//	token := tg.SecretToken("123:ABC...")
package tg
