package tg

// Update represents an incoming update from Telegram.
// The bot only subscribes to messages; other update kinds decode to nil.
type Update struct {
	UpdateID          int      `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	EditedMessage     *Message `json:"edited_message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// TextMessage returns the update's message if it carries plain text
// (not a bot command). Returns nil otherwise.
func (u Update) TextMessage() *Message {
	m := u.Message
	if m == nil || m.Text == "" || m.IsCommand() {
		return nil
	}
	return m
}

// Update types accepted by getUpdates' allowed_updates parameter.
const (
	UpdateTypeMessage = "message"
)
