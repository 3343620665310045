package sender

import (
	"github.com/prilive-com/strmbot/tg"
)

// SendMessageRequest represents a request to send a text message.
type SendMessageRequest struct {
	ChatID              tg.ChatID           `json:"chat_id"`
	MessageThreadID     int                 `json:"message_thread_id,omitempty"`
	Text                string              `json:"text"`
	ParseMode           tg.ParseMode        `json:"parse_mode,omitempty"`
	LinkPreviewOptions  *LinkPreviewOptions `json:"link_preview_options,omitempty"`
	DisableNotification bool                `json:"disable_notification,omitempty"`
	ProtectContent      bool                `json:"protect_content,omitempty"`
	ReplyParameters     *ReplyParameters    `json:"reply_parameters,omitempty"`
}

// ReplyParameters describes the message being replied to.
type ReplyParameters struct {
	MessageID                int       `json:"message_id"`
	ChatID                   tg.ChatID `json:"chat_id,omitempty"`
	AllowSendingWithoutReply bool      `json:"allow_sending_without_reply,omitempty"`
}

// LinkPreviewOptions controls link preview generation.
type LinkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled,omitempty"`
}
