package search

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks a snippet clipped on that side.
const Ellipsis = "…"

// Extract cuts a window of text around the first occurrence of any term,
// checked in term order and case-insensitively. Without an occurrence the
// window starts at offset 0. The window spans window runes either side of
// the anchor; a clipped side gets an Ellipsis, so the result is at most
// 2*window+2 runes.
func Extract(text string, terms []string, window int) string {
	if window < 0 {
		window = 0
	}
	runes := []rune(text)
	anchor := anchorOf(text, terms)

	start := anchor - window
	if start < 0 {
		start = 0
	}
	end := anchor + window
	if end > len(runes) {
		end = len(runes)
	}
	if start > end {
		start = end
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// anchorOf returns the rune offset of the first term found in text, or 0.
func anchorOf(text string, terms []string) int {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if t == "" {
			continue
		}
		if idx := strings.Index(lower, t); idx >= 0 {
			return utf8.RuneCountInString(lower[:idx])
		}
	}
	return 0
}
