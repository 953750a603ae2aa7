package render

import "strings"

// reservedChars must be backslash-escaped in Telegram MarkdownV2 text
const reservedChars = "_*[]()~`>#+-=|{}.!"

// Escape escapes s for MarkdownV2. Backslashes are doubled first so the
// escape markers added for reserved characters are never escaped again.
func Escape(s string) string {
	if !strings.ContainsAny(s, reservedChars+`\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case strings.ContainsRune(reservedChars, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeCode escapes s for use inside MarkdownV2 code spans and pre blocks,
// where only the backtick and the backslash are special.
func EscapeCode(s string) string {
	if !strings.ContainsAny(s, "`\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if r == '`' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
