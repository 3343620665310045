package handler

import (
	"fmt"
	"strings"

	"github.com/prilive-com/strmbot/tg"
)

// rejectionText renders an input rejection. The whole line is escaped
// since it carries no markup of its own.
func rejectionText(err error) string {
	return tg.EscapeMarkdownV2("❌ error: " + err.Error())
}

func successText(r Result) string {
	var b strings.Builder
	b.WriteString("✅ *File created* \\!\n")
	fmt.Fprintf(&b, "▪ Filename: `%s`\n", tg.EscapeMarkdownV2(r.Filename))
	fmt.Fprintf(&b, "▪ Content: `%s`\n", tg.EscapeMarkdownV2(r.Content))
	fmt.Fprintf(&b, "▪ Path: `%s`", tg.EscapeMarkdownV2(r.Dir))
	return b.String()
}

func failureText(err error) string {
	return "❌ *Creation failed* \\: " + tg.EscapeMarkdownV2(err.Error())
}
