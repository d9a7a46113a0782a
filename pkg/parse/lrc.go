package parse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"kikitori/pkg/store"
)

// lrcDefaultDurationMS is used when a lyric line has no end time of its own.
const lrcDefaultDurationMS = 3000

// [mm:ss], [mm:ss.fff] and [mm:ss:ff] timestamp tags; the fractional part is
// optional and one to three digits.
var lrcTimeTagRE = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:[.:](\d{1,3}))?\]`)

// LRC parses a lyric file. A line carrying several timestamp tags produces
// one entry per tag sharing the line's text. Entries are sorted by start
// time before context fill.
func LRC(path string) ([]store.Entry, error) {
	text, err := readTextGuess(path)
	if err != nil {
		return nil, err
	}

	var entries []store.Entry
	for _, line := range strings.Split(text, "\n") {
		tags := lrcTimeTagRE.FindAllStringSubmatch(line, -1)
		if len(tags) == 0 {
			continue
		}
		lineText := strings.TrimSpace(lrcTimeTagRE.ReplaceAllString(line, ""))
		for _, tag := range tags {
			startMS := lrcTagToMS(tag)
			e, ok := newEntry("song", path, lineText, startMS, startMS+lrcDefaultDurationMS)
			if !ok {
				continue
			}
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].StartMS < entries[j].StartMS })
	fillContext(entries)
	return entries, nil
}

// lrcTagToMS converts a matched tag to milliseconds. The fractional part is
// right-padded to three digits, so "5" means 500 ms and "50" means 500 ms.
func lrcTagToMS(tag []string) int {
	mm, _ := strconv.Atoi(tag[1])
	ss, _ := strconv.Atoi(tag[2])
	ms := 0
	if frac := tag[3]; frac != "" {
		ms, _ = strconv.Atoi((frac + "00")[:3])
	}
	return (mm*60+ss)*1000 + ms
}
