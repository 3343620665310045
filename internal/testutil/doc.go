// Package testutil provides test helpers shared by the strmbot packages.
//
// # Mock Telegram Server
//
//	server := testutil.NewMockServer(t)
//	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyMessage(w, 123)
//	})
//	client := testutil.NewTestClient(t, server.BaseURL())
//
// Every request is captured:
//
//	sent := server.CapturesFor("sendMessage")
//	sent[0].AssertJSONField(t, "parse_mode", "MarkdownV2")
//
// # Fake Sleeper
//
// FakeSleeper satisfies resilience.Sleeper and records waits instead of
// sleeping.
//
// # Logs
//
// NewLogger returns a slog.Logger backed by a LogBuffer for asserting on
// log lines written from several goroutines.
package testutil
