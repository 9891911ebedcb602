// Package content shapes stored blogs and comments into view models: excerpts,
// comment threads and the dashboard activity feed.
package content

import (
	"regexp"
	"strings"
)

const (
	// DefaultExcerptLength is the preview length used by blog listings.
	DefaultExcerptLength = 150
	// Ellipsis marks a truncated excerpt.
	Ellipsis = "..."
)

// trimCutset matches the characters stripped from both ends of an excerpt.
const trimCutset = " \t\n\r\x00\x0B"

var (
	markdownMarkers = regexp.MustCompile("[#*_~`]")
	markdownLinks   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// MakeExcerpt derives a plain-text preview of markdown content.
//
// Emphasis, heading, strike and code markers are removed, links are replaced
// by their text, every newline becomes a space and surrounding whitespace is
// trimmed. Text longer than maxLen characters is cut to maxLen and suffixed
// with Ellipsis. A non-positive maxLen selects DefaultExcerptLength.
func MakeExcerpt(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultExcerptLength
	}

	plain := markdownMarkers.ReplaceAllString(content, "")
	plain = markdownLinks.ReplaceAllString(plain, "$1")
	plain = strings.ReplaceAll(plain, "\n", " ")
	plain = strings.Trim(plain, trimCutset)

	runes := []rune(plain)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + Ellipsis
	}
	return plain
}
