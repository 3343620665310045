package testutil

import "github.com/prilive-com/strmbot/tg"

// Test constants for consistent test data.
const (
	// TestToken is a valid-format bot token for testing.
	TestToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz"

	TestChatID      = int64(123456789)
	TestGroupID     = int64(-1001234567890)
	TestUserID      = int64(987654321)
	TestBotID       = int64(123456789)
	TestUsername    = "testuser"
	TestBotUsername = "strm_test_bot"
)

// TestUser returns a test user fixture.
func TestUser() *tg.User {
	return &tg.User{
		ID:        TestUserID,
		FirstName: "Test",
		LastName:  "User",
		Username:  TestUsername,
	}
}

// TestBot returns the bot's own user fixture, as getMe reports it.
func TestBot() *tg.User {
	return &tg.User{
		ID:        TestBotID,
		IsBot:     true,
		FirstName: "Test Bot",
		Username:  TestBotUsername,
	}
}

// TestChat returns a test private chat fixture.
func TestChat() *tg.Chat {
	return &tg.Chat{
		ID:        TestChatID,
		Type:      tg.ChatTypePrivate,
		FirstName: "Test",
		Username:  TestUsername,
	}
}

// TestGroupChat returns a test supergroup fixture.
func TestGroupChat() *tg.Chat {
	return &tg.Chat{
		ID:    TestGroupID,
		Type:  tg.ChatTypeSupergroup,
		Title: "Test Group",
	}
}

// TestMessage returns a private text message fixture.
func TestMessage(messageID int, text string) *tg.Message {
	return &tg.Message{
		MessageID: messageID,
		Date:      1234567890,
		Chat:      TestChat(),
		From:      TestUser(),
		Text:      text,
	}
}

// TestGroupMessage returns a text message fixture sent in TestGroupChat.
func TestGroupMessage(messageID int, text string) *tg.Message {
	msg := TestMessage(messageID, text)
	msg.Chat = TestGroupChat()
	return msg
}
