// Package utils provides shared utilities for text and logging.
package utils

import "unicode/utf8"

// Truncate returns s cut to at most maxLen runes. When s is cut, the result ends
// with "..." and still fits within maxLen. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-len(ellipsis)]) + ellipsis
}
