package strm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prilive-com/strmbot/internal/strm"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Movie", "Movie"},
		{"colon and question", "My Movie: Part 2?", "My Movie： Part 2？"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"trailing slash", "dir/", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"trim after basename", "a/  b  ", "b"},
		{"backslash kept as lookalike", `..\..\win`, "..＼..＼win"},
		{"every hazard", `a\:*?"<>|b`, "a＼：＊？“＜＞｜b"},
		{"unicode untouched", "电影 第一部", "电影 第一部"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strm.Sanitize(tt.raw))
		})
	}
}

func TestSanitize_NeverEmitsHazards(t *testing.T) {
	inputs := []string{
		`/\:*?"<>|`,
		"x/y/z:*",
		`"quoted" <tag> | pipe`,
		"C:\\Users\\me\\file?.txt",
		strings.Repeat(`?*`, 50),
	}

	for _, in := range inputs {
		got := strm.Sanitize(in)
		assert.False(t, strings.ContainsAny(got, `/\:*?"<>|`), "Sanitize(%q) = %q", in, got)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "passwd.strm", strm.Filename("passwd"))
}
