package handler_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/strmbot/internal/handler"
	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/strm"
	"github.com/prilive-com/strmbot/internal/testutil"
	"github.com/prilive-com/strmbot/sender"
	"github.com/prilive-com/strmbot/tg"
)

// recordingSender captures replies and fails with queued errors first.
type recordingSender struct {
	mu   sync.Mutex
	reqs []sender.SendMessageRequest
	errs []error
}

func (s *recordingSender) SendMessage(_ context.Context, req sender.SendMessageRequest) (*tg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &tg.Message{MessageID: len(s.reqs)}, nil
}

func (s *recordingSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func (s *recordingSender) last(t *testing.T) sender.SendMessageRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.reqs, "no reply sent")
	return s.reqs[len(s.reqs)-1]
}

var errReset = &net.OpError{Op: "write", Net: "tcp", Err: syscall.ECONNRESET}

type fixture struct {
	dir     string
	sender  *recordingSender
	sleeper *testutil.FakeSleeper
	logs    *testutil.LogBuffer
	h       *handler.Handler
}

func newFixture(t *testing.T, opts ...handler.Option) *fixture {
	t.Helper()
	f := &fixture{
		dir:     filepath.Join(t.TempDir(), "alist"),
		sender:  &recordingSender{},
		sleeper: &testutil.FakeSleeper{},
	}
	logger, logs := testutil.NewLogger()
	f.logs = logs

	policy := resilience.DefaultPolicy("reply")
	policy.Sleeper = f.sleeper

	cfg := handler.Config{
		StorageDir:    f.dir,
		MaxNameLength: 250,
		Retry:         policy,
	}
	f.h = handler.New(cfg, f.sender, append([]handler.Option{handler.WithLogger(logger)}, opts...)...)
	return f
}

func fixedToken(int) string { return "Tok3nTok3nTok3nTok3n" }

// ==================== File creation ====================

func TestHandleMessage_SanitizesAndCreatesFile(t *testing.T) {
	f := newFixture(t)

	err := f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "My Movie: Part 2?"))
	require.NoError(t, err)

	path := filepath.Join(f.dir, "My Movie： Part 2？.strm")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, content, strm.DefaultTokenLength)
	for _, r := range string(content) {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}

	reply := f.sender.last(t)
	assert.Equal(t, testutil.TestChatID, reply.ChatID)
	assert.Equal(t, tg.ParseModeMarkdownV2, reply.ParseMode)
	assert.Nil(t, reply.ReplyParameters, "private chats are not quoted")
	assert.Contains(t, reply.Text, "`My Movie： Part 2？\\.strm`")
	assert.Contains(t, reply.Text, "`"+string(content)+"`")
}

func TestHandleMessage_SuccessReplyFormat(t *testing.T) {
	f := newFixture(t, handler.WithTokenGenerator(fixedToken))

	require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "movie_(2024).mkv")))

	want := "✅ *File created* \\!\n" +
		"▪ Filename: `movie\\_\\(2024\\)\\.mkv\\.strm`\n" +
		"▪ Content: `Tok3nTok3nTok3nTok3n`\n" +
		"▪ Path: `" + tg.EscapeMarkdownV2(f.dir) + "`"
	assert.Equal(t, want, f.sender.last(t).Text)
}

func TestHandleMessage_PathTraversalStaysInFolder(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "../../etc/passwd")))

	assert.FileExists(t, filepath.Join(f.dir, "passwd.strm"))
	entries, err := os.ReadDir(filepath.Dir(f.dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alist", entries[0].Name())
}

func TestHandleMessage_OverwritesExisting(t *testing.T) {
	tokens := []string{"first", "second"}
	i := 0
	f := newFixture(t, handler.WithTokenGenerator(func(int) string {
		tok := tokens[i]
		i++
		return tok
	}))

	msg := testutil.TestMessage(1, "same name")
	require.NoError(t, f.h.HandleMessage(context.Background(), msg))
	require.NoError(t, f.h.HandleMessage(context.Background(), msg))

	content, err := os.ReadFile(filepath.Join(f.dir, "same name.strm"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

// ==================== Rejections ====================

func TestHandleMessage_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		reply string
	}{
		{
			name:  "whitespace only",
			text:  "   \t ",
			reply: "❌ error: empty input",
		},
		{
			name:  "empty after sanitizing",
			text:  "folder/",
			reply: "❌ error: invalid filename \\(empty after sanitizing\\)",
		},
		{
			name:  "too long",
			text:  strings.Repeat("a", 300),
			reply: "❌ error: filename too long \\(max 250 characters\\)",
		},
		{
			name:  "too long in characters not bytes",
			text:  strings.Repeat("é", 251),
			reply: "❌ error: filename too long \\(max 250 characters\\)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, tt.text)))

			reply := f.sender.last(t)
			assert.Equal(t, tt.reply, reply.Text)
			assert.Equal(t, tg.ParseModeMarkdownV2, reply.ParseMode)
			assert.NoDirExists(t, f.dir, "nothing may be written")
		})
	}
}

func TestHandleMessage_LengthBoundaryAccepted(t *testing.T) {
	f := newFixture(t)

	name := strings.Repeat("a", 250)
	require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, name)))

	assert.FileExists(t, filepath.Join(f.dir, name+".strm"))
}

func TestHandleMessage_IgnoresMessagesWithoutText(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.h.HandleMessage(context.Background(), nil))
	require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "")))

	assert.Zero(t, f.sender.calls())
}

// ==================== Failures ====================

func TestHandleMessage_WriteFailureReported(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.dir, []byte("not a dir"), 0o644))

	require.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "movie")))

	text := f.sender.last(t).Text
	assert.True(t, strings.HasPrefix(text, "❌ *Creation failed* \\: "), text)
	assert.Contains(t, text, "not a directory")
	assert.Len(t, f.logs.Lines("file creation failed"), 1)
}

func TestHandleMessage_ReplyRetriedOnTransientError(t *testing.T) {
	f := newFixture(t)
	f.sender.errs = []error{errReset, errReset}

	err := f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "movie"))
	require.NoError(t, err)

	assert.Equal(t, 3, f.sender.calls())
	assert.Equal(t, 2, f.sleeper.CallCount())
	assert.Equal(t, 300*time.Second, f.sleeper.CallAt(0))

	retries := f.logs.Lines("[retry ")
	require.Len(t, retries, 2)
	assert.Contains(t, retries[0], "[retry 1/3]")
	assert.Contains(t, retries[1], "[retry 2/3]")
	assert.Contains(t, retries[0], "correlation_id=")

	assert.FileExists(t, filepath.Join(f.dir, "movie.strm"))
}

func TestHandleMessage_ReplyBudgetExhausted(t *testing.T) {
	f := newFixture(t)
	f.sender.errs = []error{errReset, errReset, errReset}

	err := f.h.HandleMessage(context.Background(), testutil.TestMessage(7, "movie"))

	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrRetryBudgetExhausted)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.Contains(t, err.Error(), "message 7")
	assert.Equal(t, 3, f.sender.calls())
}

func TestHandleMessage_NonTransientReplyErrorNotRetried(t *testing.T) {
	f := newFixture(t)
	f.sender.errs = []error{tg.NewAPIError("sendMessage", 403, "Forbidden: bot was blocked by the user")}

	err := f.h.HandleMessage(context.Background(), testutil.TestMessage(1, "movie"))

	assert.ErrorIs(t, err, tg.ErrBotBlocked)
	assert.False(t, errors.Is(err, resilience.ErrRetryBudgetExhausted))
	assert.Equal(t, 1, f.sender.calls())
	assert.Zero(t, f.sleeper.CallCount())
}

// ==================== Chat handling ====================

func TestHandleMessage_GroupReplyQuotesMessage(t *testing.T) {
	f := newFixture(t)

	msg := testutil.TestGroupMessage(55, "movie")
	msg.MessageThreadID = 9
	require.NoError(t, f.h.HandleMessage(context.Background(), msg))

	reply := f.sender.last(t)
	assert.Equal(t, testutil.TestGroupID, reply.ChatID)
	assert.Equal(t, 9, reply.MessageThreadID)
	require.NotNil(t, reply.ReplyParameters)
	assert.Equal(t, 55, reply.ReplyParameters.MessageID)
	assert.True(t, reply.ReplyParameters.AllowSendingWithoutReply)
}

func TestHandleMessage_ConcurrentMessages(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			text := "movie " + strings.Repeat("x", i)
			assert.NoError(t, f.h.HandleMessage(context.Background(), testutil.TestMessage(i, text)))
		})
	}
	wg.Wait()

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
	assert.Equal(t, 20, f.sender.calls())
}

// ==================== Wire format ====================

func TestHandleMessage_ThroughSender(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyMessage(w, 100)
	})
	client := testutil.NewTestClient(t, server.BaseURL())

	dir := t.TempDir()
	h := handler.New(handler.Config{StorageDir: dir}, client,
		handler.WithTokenGenerator(fixedToken))

	require.NoError(t, h.HandleMessage(context.Background(), testutil.TestGroupMessage(3, "a.b")))

	c := server.LastCapture()
	require.NotNil(t, c)
	c.AssertPath(t, testutil.APIPath("sendMessage"))
	c.AssertJSONField(t, "parse_mode", "MarkdownV2")
	c.AssertJSONField(t, "reply_parameters.message_id", float64(3))
	assert.Contains(t, c.Text(t), "`a\\.b\\.strm`")
}

// ==================== Create ====================

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	h := handler.New(handler.Config{StorageDir: dir}, &recordingSender{},
		handler.WithTokenGenerator(fixedToken))

	res, err := h.Create("  Show / S01E01  ")
	require.NoError(t, err)
	assert.Equal(t, "S01E01", res.Name)
	assert.Equal(t, "S01E01.strm", res.Filename)
	assert.Equal(t, "Tok3nTok3nTok3nTok3n", res.Content)
	assert.Equal(t, dir, res.Dir)
	assert.Equal(t, filepath.Join(dir, "S01E01.strm"), res.Path)

	_, err = h.Create(strings.Repeat("a", handler.DefaultMaxNameLength+1))
	assert.ErrorIs(t, err, handler.ErrFilenameTooLong)

	_, err = h.Create("")
	assert.ErrorIs(t, err, handler.ErrEmptyInput)
}

func TestCreate_WriteErrorType(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	h := handler.New(handler.Config{StorageDir: file}, &recordingSender{})
	_, err := h.Create("movie")

	var wErr *strm.WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, file, wErr.Path)
}
