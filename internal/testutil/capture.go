package testutil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Capture is one request received by MockTelegramServer.
type Capture struct {
	Method      string
	Path        string
	Query       url.Values
	Headers     http.Header
	Body        []byte
	ContentType string
	Timestamp   time.Time
}

// AssertPath verifies the request path.
func (c *Capture) AssertPath(t *testing.T, expected string) {
	t.Helper()
	assert.Equal(t, expected, c.Path, "unexpected path")
}

// AssertContentType verifies the Content-Type header contains expected value.
func (c *Capture) AssertContentType(t *testing.T, expected string) {
	t.Helper()
	assert.Contains(t, c.ContentType, expected, "unexpected content-type")
}

// AssertJSONField verifies a field in the JSON body. Dotted paths such as
// "reply_parameters.message_id" descend into nested objects.
func (c *Capture) AssertJSONField(t *testing.T, path string, expected any) {
	t.Helper()
	value, ok := lookup(c.BodyMap(t), path)
	require.True(t, ok, "field missing: "+path)
	assert.Equal(t, expected, value, "unexpected value for field: "+path)
}

// AssertJSONFieldAbsent verifies a field does NOT exist in the JSON body.
func (c *Capture) AssertJSONFieldAbsent(t *testing.T, path string) {
	t.Helper()
	_, ok := lookup(c.BodyMap(t), path)
	assert.False(t, ok, "field should be absent: "+path)
}

// BodyMap returns the body as a map.
func (c *Capture) BodyMap(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(c.Body, &m), "failed to decode JSON body")
	return m
}

// Text returns the "text" field of a sendMessage body, or "".
func (c *Capture) Text(t *testing.T) string {
	t.Helper()
	s, _ := c.BodyMap(t)["text"].(string)
	return s
}

func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}
