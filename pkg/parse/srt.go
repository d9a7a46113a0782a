package parse

import (
	"regexp"
	"strconv"
	"strings"

	"kikitori/pkg/store"
)

var (
	// 00:01:02,500 --> 00:01:04,000 (SubRip also tolerates '.' separators).
	srtTimeLineRE = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)

	// Inline formatting markup: <i>..</i> style tags and {..} override blocks.
	markupTagRE   = regexp.MustCompile(`<[^>]*>`)
	markupBraceRE = regexp.MustCompile(`\{[^}]*\}`)
)

// SRT parses a SubRip subtitle file: numbered blocks of a time line followed
// by one or more text lines, separated by blank lines.
func SRT(path string) ([]store.Entry, error) {
	raw, err := readTextGuess(path)
	if err != nil {
		return nil, err
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var entries []store.Entry
	for _, block := range strings.Split(raw, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timeIdx := -1
		var m []string
		for i, line := range lines {
			if m = srtTimeLineRE.FindStringSubmatch(line); m != nil {
				timeIdx = i
				break
			}
		}
		if timeIdx < 0 || timeIdx+1 >= len(lines) {
			continue
		}
		startMS := srtClockToMS(m[1], m[2], m[3], m[4])
		endMS := srtClockToMS(m[5], m[6], m[7], m[8])
		text := stripMarkup(strings.Join(lines[timeIdx+1:], " "))

		if e, ok := newEntry("anime", path, text, startMS, endMS); ok {
			entries = append(entries, e)
		}
	}

	fillContext(entries)
	return entries, nil
}

func srtClockToMS(h, m, s, frac string) int {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	ms, _ := strconv.Atoi((frac + "00")[:3])
	return ((hh*60+mm)*60+ss)*1000 + ms
}

func stripMarkup(s string) string {
	s = markupBraceRE.ReplaceAllString(s, "")
	s = markupTagRE.ReplaceAllString(s, "")
	return s
}
