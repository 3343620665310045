package notify_test

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/strmbot/internal/notify"
	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/testutil"
	"github.com/prilive-com/strmbot/sender"
	"github.com/prilive-com/strmbot/tg"
)

const testAdminChat = int64(555)

type fixture struct {
	server  *testutil.MockTelegramServer
	client  *sender.Client
	sleeper *testutil.FakeSleeper
	logger  *slog.Logger
	logs    *testutil.LogBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := testutil.NewMockServer(t)
	logger, logs := testutil.NewLogger()
	client := testutil.NewTestClient(t, server.BaseURL(),
		sender.WithCircuitBreakerSettings(testutil.CircuitBreakerNeverTrip()))
	return &fixture{
		server:  server,
		client:  client,
		sleeper: &testutil.FakeSleeper{},
		logger:  logger,
		logs:    logs,
	}
}

func (f *fixture) notifier(adminChatID int64) *notify.Notifier {
	policy := notify.StartupPolicy()
	policy.Sleeper = f.sleeper
	return notify.New(f.client, f.client, notify.Config{
		AdminChatID: adminChatID,
		Version:     "v2.2",
		StorageDir:  "/srv/alist",
		Retry:       policy,
		Logger:      f.logger,
	})
}

func (f *fixture) onGetMe() {
	f.server.OnAPI("getMe", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyUser(w)
	})
}

func (f *fixture) onSendMessage() {
	f.server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyMessage(w, 1)
	})
}

func TestNotify_SendsStartupNotice(t *testing.T) {
	f := newFixture(t)
	f.onGetMe()
	f.onSendMessage()

	require.NoError(t, f.notifier(testAdminChat).Notify(context.Background()))

	sends := f.server.CapturesFor("sendMessage")
	require.Len(t, sends, 1)
	sends[0].AssertJSONField(t, "chat_id", float64(testAdminChat))
	sends[0].AssertJSONField(t, "parse_mode", "MarkdownV2")
	assert.Equal(t, notify.StartupText(testutil.TestBot(), "v2.2", "/srv/alist"), sends[0].Text(t))

	started := f.logs.Lines("bot started")
	require.Len(t, started, 1)
	assert.Contains(t, started[0], "username="+testutil.TestBotUsername)
	assert.Contains(t, started[0], "storage_dir=/srv/alist")
}

func TestNotify_NoAdminChatSkipsNotice(t *testing.T) {
	f := newFixture(t)
	f.onGetMe()

	require.NoError(t, f.notifier(0).Notify(context.Background()))

	assert.Len(t, f.server.CapturesFor("getMe"), 1)
	assert.Empty(t, f.server.CapturesFor("sendMessage"))
	assert.Len(t, f.logs.Lines("bot started"), 1)
	assert.Len(t, f.logs.Lines("startup notice skipped"), 1)
}

func TestNotify_GetMeRetried(t *testing.T) {
	f := newFixture(t)
	var calls atomic.Int32
	f.server.OnAPI("getMe", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			testutil.ReplyServerError(w, 502, "Bad Gateway")
			return
		}
		testutil.ReplyUser(w)
	})
	f.onSendMessage()

	require.NoError(t, f.notifier(testAdminChat).Notify(context.Background()))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, f.sleeper.CallCount())
	assert.Len(t, f.logs.Lines("[retry "), 2)
	assert.Len(t, f.server.CapturesFor("sendMessage"), 1)
}

func TestNotify_SendBudgetExhausted(t *testing.T) {
	f := newFixture(t)
	f.onGetMe()
	f.server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyServerError(w, 500, "Internal Server Error")
	})

	err := f.notifier(testAdminChat).Notify(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrRetryBudgetExhausted)
	assert.Contains(t, err.Error(), "send startup notice")
	assert.Len(t, f.server.CapturesFor("sendMessage"), 5)
	assert.Equal(t, 4, f.sleeper.CallCount())
}

func TestNotify_PermanentErrorNotRetried(t *testing.T) {
	f := newFixture(t)
	f.onGetMe()
	f.server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyBadRequest(w, "chat not found")
	})

	err := f.notifier(testAdminChat).Notify(context.Background())

	assert.ErrorIs(t, err, tg.ErrChatNotFound)
	assert.Len(t, f.server.CapturesFor("sendMessage"), 1)
	assert.Zero(t, f.sleeper.CallCount())
}

func TestNotify_UnauthorizedToken(t *testing.T) {
	f := newFixture(t)
	f.server.OnAPI("getMe", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyError(w, 401, "Unauthorized", nil)
	})

	err := f.notifier(testAdminChat).Notify(context.Background())

	assert.ErrorIs(t, err, tg.ErrUnauthorized)
	assert.Contains(t, err.Error(), "get bot identity")
	assert.Empty(t, f.server.CapturesFor("sendMessage"))
}

func TestStartupText(t *testing.T) {
	me := &tg.User{ID: 123456789, Username: "strm_test_bot"}

	want := "🤖 *Bot started* \\!\n" +
		"▪ Username: @strm\\_test\\_bot\n" +
		"▪ ID: `123456789`\n" +
		"▪ Version: `v2\\.2`\n" +
		"▪ Storage: `/srv/my\\-media`"
	assert.Equal(t, want, notify.StartupText(me, "v2.2", "/srv/my-media"))
}

func TestStartupPolicy(t *testing.T) {
	p := notify.StartupPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, "startup", p.Name)
}
