package parse

import (
	"regexp"
	"strconv"
	"strings"

	"kikitori/pkg/store"
)

// ASS event times look like 0:01:02.50 (centiseconds).
var assClockRE = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{1,3})$`)

// ASS parses the [Events] section of an Advanced SubStation file. The
// Format: line fixes the field order; Dialogue: lines carry the events.
// Override blocks ({\...}) are stripped and \N line breaks become spaces.
func ASS(path string) ([]store.Entry, error) {
	raw, err := readTextGuess(path)
	if err != nil {
		return nil, err
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var entries []store.Entry
	inEvents := false
	startIdx, endIdx, textIdx, nFields := -1, -1, -1, 0

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "["):
			inEvents = strings.EqualFold(trimmed, "[Events]")
		case inEvents && strings.HasPrefix(trimmed, "Format:"):
			fields := strings.Split(strings.TrimPrefix(trimmed, "Format:"), ",")
			nFields = len(fields)
			for i, f := range fields {
				switch strings.TrimSpace(f) {
				case "Start":
					startIdx = i
				case "End":
					endIdx = i
				case "Text":
					textIdx = i
				}
			}
		case inEvents && strings.HasPrefix(trimmed, "Dialogue:"):
			if startIdx < 0 || endIdx < 0 || textIdx < 0 {
				continue
			}
			// The Text field is last and may itself contain commas.
			fields := strings.SplitN(strings.TrimPrefix(trimmed, "Dialogue:"), ",", nFields)
			if len(fields) <= textIdx || len(fields) <= startIdx || len(fields) <= endIdx {
				continue
			}
			startMS, okS := assClockToMS(strings.TrimSpace(fields[startIdx]))
			endMS, okE := assClockToMS(strings.TrimSpace(fields[endIdx]))
			if !okS || !okE {
				continue
			}
			text := assText(fields[textIdx])
			if e, ok := newEntry("anime", path, text, startMS, endMS); ok {
				entries = append(entries, e)
			}
		}
	}

	fillContext(entries)
	return entries, nil
}

func assClockToMS(clock string) (int, bool) {
	m := assClockRE.FindStringSubmatch(clock)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	frac, _ := strconv.Atoi((m[4] + "00")[:3])
	return ((h*60+mm)*60+ss)*1000 + frac, true
}

func assText(s string) string {
	s = markupBraceRE.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\N`, " ")
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, `\h`, " ")
	return s
}
