package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// route matches requests by HTTP method and path. An empty method matches
// any method.
type route struct {
	method string
	path   string
}

// MockTelegramServer is a fake Bot API server that records every request.
type MockTelegramServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[route]http.HandlerFunc
	captures []Capture
}

// NewMockServer starts a mock Bot API server that is closed with the test.
// Unrouted requests answer {"ok":true,"result":{}}.
func NewMockServer(t *testing.T) *MockTelegramServer {
	t.Helper()
	m := &MockTelegramServer{routes: make(map[route]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

func (m *MockTelegramServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	m.mu.Lock()
	m.captures = append(m.captures, Capture{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Headers:     r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Timestamp:   time.Now(),
	})
	h := m.lookup(r.Method, r.URL.Path)
	m.mu.Unlock()

	if h == nil {
		ReplyOK(w, map[string]any{})
		return
	}
	h(w, r)
}

func (m *MockTelegramServer) lookup(method, path string) http.HandlerFunc {
	if h, ok := m.routes[route{method, path}]; ok {
		return h
	}
	return m.routes[route{path: path}]
}

// OnMethod routes one HTTP method on path to handler.
func (m *MockTelegramServer) OnMethod(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route{method, path}] = handler
}

// On routes every HTTP method on path to handler.
func (m *MockTelegramServer) On(path string, handler http.HandlerFunc) {
	m.OnMethod("", path, handler)
}

// OnAPI routes a Bot API method called with TestToken to handler.
//
//	server.OnAPI("sendMessage", func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyMessage(w, 123)
//	})
func (m *MockTelegramServer) OnAPI(apiMethod string, handler http.HandlerFunc) {
	m.On(APIPath(apiMethod), handler)
}

// APIPath returns the request path for a Bot API method called with TestToken.
func APIPath(apiMethod string) string {
	return "/bot" + TestToken + "/" + apiMethod
}

// Captures returns a copy of every captured request.
func (m *MockTelegramServer) Captures() []Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Capture(nil), m.captures...)
}

// CapturesFor returns the captured requests for one Bot API method.
func (m *MockTelegramServer) CapturesFor(apiMethod string) []Capture {
	var out []Capture
	for _, c := range m.Captures() {
		if strings.HasSuffix(c.Path, "/"+apiMethod) {
			out = append(out, c)
		}
	}
	return out
}

// LastCapture returns the most recent request, or nil.
func (m *MockTelegramServer) LastCapture() *Capture {
	all := m.Captures()
	if len(all) == 0 {
		return nil
	}
	return &all[len(all)-1]
}

// CaptureCount returns the number of captured requests.
func (m *MockTelegramServer) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captures)
}

// TimeBetweenCaptures returns how far apart requests i and j arrived.
func (m *MockTelegramServer) TimeBetweenCaptures(i, j int) time.Duration {
	all := m.Captures()
	if min(i, j) < 0 || max(i, j) >= len(all) {
		return 0
	}
	return all[j].Timestamp.Sub(all[i].Timestamp)
}

// BaseURL returns the server's base URL.
func (m *MockTelegramServer) BaseURL() string {
	return m.Server.URL
}
