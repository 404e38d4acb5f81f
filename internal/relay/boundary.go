package relay

import (
	"unicode/utf8"

	"github.com/stayline/concierge-gateway/internal/config"
)

// earliestBoundary returns the index just past the earliest safe split point
// in s, or -1 when none exists yet. Safe points are a newline or a sentence
// terminator followed by whitespace. A period that closes a numbered list
// marker ("1. Apaga el horno") is not a sentence end.
func earliestBoundary(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			return i + 1
		case '.', '!', '?':
			if s[i] == '.' && isListMarkerDot(s, i) {
				continue
			}
			if i+1 < len(s) && isSpace(s[i+1]) {
				return i + 2
			}
		}
	}
	return -1
}

// isListMarkerDot reports whether the period at index i terminates a list
// item marker: digits only between it and the start of the line.
func isListMarkerDot(s string, i int) bool {
	j := i - 1
	for j >= 0 && s[j] >= '0' && s[j] <= '9' {
		j--
	}
	if j == i-1 {
		return false // no digits before the period
	}
	return j < 0 || s[j] == '\n'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// backstopSplit picks a forced split index for a buffer that exceeded the
// backstop with no safe boundary: the position after the last space within
// the backstop, or the nearest rune boundary when the text has no spaces.
func backstopSplit(s string) int {
	limit := config.RelayBackstopChars
	if limit > len(s) {
		limit = len(s)
	}
	for i := limit - 1; i > 0; i-- {
		if s[i] == ' ' {
			return i + 1
		}
	}
	for limit > 0 && limit < len(s) && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return limit
}

// nextSegment carves the next translatable segment off the front of s.
func nextSegment(s string) (segment, rest string, ok bool) {
	if idx := earliestBoundary(s); idx >= 0 {
		return s[:idx], s[idx:], true
	}
	if len(s) > config.RelayBackstopChars {
		idx := backstopSplit(s)
		return s[:idx], s[idx:], true
	}
	return "", s, false
}
