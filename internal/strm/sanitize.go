package strm

import (
	"strings"
)

// Extension is appended to every sanitized name.
const Extension = ".strm"

// hazardReplacer swaps characters that are unsafe in filenames on common
// filesystems for visually similar full-width or typographic forms.
var hazardReplacer = strings.NewReplacer(
	`/`, "／",
	`\`, "＼",
	`:`, "：",
	`*`, "＊",
	`?`, "？",
	`"`, "“",
	`<`, "＜",
	`>`, "＞",
	`|`, "｜",
)

// Sanitize converts raw text into a filename with no directory part and
// none of the characters / \ : * ? " < > |.
//
// Only the text after the last '/' is kept, so "../../etc/passwd" becomes
// "passwd" and "dir/" becomes "". The result is trimmed of surrounding
// whitespace and may be empty.
func Sanitize(raw string) string {
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		raw = raw[i+1:]
	}
	return strings.TrimSpace(hazardReplacer.Replace(raw))
}

// Filename returns the .strm filename for an already sanitized name.
func Filename(name string) string {
	return name + Extension
}
