package strm

import (
	"strings"
	"testing"
)

// FuzzSanitize checks that no input yields a directory part, a hazard
// character, or surrounding whitespace.
func FuzzSanitize(f *testing.F) {
	f.Add("My Movie: Part 2?")
	f.Add("../../etc/passwd")
	f.Add("dir/")
	f.Add(`/\:*?"<>|`)
	f.Add("  \t padded \n")
	f.Add("C:\\Users\\me\\file?.txt")
	f.Add("Фильм (2024)")
	f.Add("")

	f.Fuzz(func(t *testing.T, raw string) {
		got := Sanitize(raw)
		if strings.ContainsAny(got, `/\:*?"<>|`) {
			t.Fatalf("Sanitize(%q) = %q keeps a hazard character", raw, got)
		}
		if got != strings.TrimSpace(got) {
			t.Fatalf("Sanitize(%q) = %q is not trimmed", raw, got)
		}
		if again := Sanitize(got); again != got {
			t.Fatalf("Sanitize is not stable: %q then %q", got, again)
		}
	})
}
