package sources

import "strings"

// MaxAbstractChars matches the workspace database's rich text limit.
const MaxAbstractChars = 2000

func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TruncateChars(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
