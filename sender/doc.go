// Package sender calls the outbound Telegram Bot API methods the bot needs:
// getMe and sendMessage.
//
// Every call passes through per-chat and global rate limiters and a circuit
// breaker. Responses with 429 or 5xx are retried with exponential backoff,
// honouring retry_after when Telegram supplies it; when the retries run out
// the error wraps ErrMaxRetries. The bot token never appears in returned
// errors.
//
//	client, err := sender.New(token,
//	    sender.WithProxy("http://127.0.0.1:7890"),
//	    sender.WithTimeouts(20*time.Second, 30*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	msg, err := client.SendMessage(ctx, sender.SendMessageRequest{
//	    ChatID:    chatID,
//	    Text:      tg.EscapeMarkdownV2("Hello!"),
//	    ParseMode: tg.ParseModeMarkdownV2,
//	})
package sender
