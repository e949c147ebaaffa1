package ai

import (
	"regexp"
	"strings"
)

var (
	numberedMarker = regexp.MustCompile(`\d+\.`)
	numberedSplit  = regexp.MustCompile(`\s*\d+\.\s*`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
)

// SplitNumbered splits a single element holding an inline numbered list
// ("1. Foo 2. Bar") into separate trimmed elements. Other inputs are returned as is.
func SplitNumbered(items []string) []string {
	if len(items) != 1 || !numberedMarker.MatchString(items[0]) {
		return items
	}

	parts := numberedSplit.Split(items[0], -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StripTags removes anything that looks like an HTML tag from every element.
func StripTags(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, htmlTag.ReplaceAllString(item, ""))
	}
	return out
}

// RepairList applies the list repairs in order and falls back to the sentinel
// when nothing is left.
func RepairList(items []string) []string {
	repaired := StripTags(SplitNumbered(items))
	if len(repaired) == 0 {
		return []string{NotAvailable}
	}
	return repaired
}
