// Package jptext holds small text utilities shared by the indexer and the
// search path: canonical cleaning of Japanese source lines and timestamp
// formatting for display.
package jptext

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Directional and invisible control characters that show up in scraped
// subtitles and corrupt both display and token matching: LRM/RLM, the
// embedding/override block U+202A..U+202E and the isolate block U+2066..U+2069.
func isBidiControl(r rune) bool {
	switch {
	case r == '\u200e' || r == '\u200f':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

// Clean canonicalizes a raw source line: NFKC compatibility normalization,
// removal of bidi control characters, and whitespace trim. Empty input yields
// empty output. Clean is idempotent.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if isBidiControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// FormatMS renders a millisecond offset as hh:mm:ss.mmm.
func FormatMS(ms int) string {
	if ms < 0 {
		ms = 0
	}
	s, ms := ms/1000, ms%1000
	m, s := s/60, s%60
	h, m := m/60, m%60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
