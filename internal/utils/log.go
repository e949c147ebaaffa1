package utils

import "strings"

// TruncateForLog cuts s to limit runes for prompt and reply previews.
// A non-positive limit disables the preview.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
