package util

import "strings"

// SanitizeText drops NUL bytes and other non-printing control characters
// before a string reaches Postgres or the Notion API. PDF text layers are
// the usual offender. Newlines, carriage returns and tabs survive; the
// result is trimmed.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch < 0x20 && ch != '\n' && ch != '\r' && ch != '\t' {
			continue
		}
		b.WriteRune(ch)
	}
	return strings.TrimSpace(b.String())
}
