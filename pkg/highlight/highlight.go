// Package highlight computes labeled, non-overlapping spans over a result's
// text and renders them as escaped HTML. Phrase matches take precedence over
// individual token matches.
package highlight

import (
	"html"
	"sort"
	"strings"

	"kikitori/pkg/tokenize"
)

// Label classifies a highlighted span.
type Label string

const (
	// LabelPhrase marks a literal quoted-phrase match.
	LabelPhrase Label = "phrase"
	// LabelToken marks a query-token match outside any phrase range.
	LabelToken Label = "token"
)

// Fixed visual styles per label; labels never carry user-controlled styling.
const (
	phraseStyle = "background-color:#BAF7C7; color:#103E1E; border-radius:4px; padding:0 3px;"
	tokenStyle  = "background-color:#FFE69A; color:#202020; border-radius:4px; padding:0 3px;"
)

// Span is a labeled rune range of the highlighted text.
type Span struct {
	Start, End int
	Label      Label
}

// Spans computes the final ordered, non-overlapping spans of text for the
// given phrases and query token sets. Offsets are rune offsets.
func Spans(a *tokenize.Analyzer, text string, phrases []string, surfaceSet, readingSet map[string]struct{}) []Span {
	if text == "" {
		return nil
	}

	phraseRanges := Merge(findPhraseRanges(text, phrases))

	var tokenRanges []Interval
	if len(surfaceSet) > 0 || len(readingSet) > 0 {
		for _, tok := range a.Tokens(text) {
			_, bySurface := surfaceSet[tok.Surface]
			_, byReading := readingSet[tok.Reading]
			if !bySurface && !byReading {
				continue
			}
			// A token already covered by a phrase highlight is never
			// highlighted again; uncovered remainders still are.
			tokenRanges = append(tokenRanges,
				Subtract(Interval{tok.Start, tok.End}, phraseRanges)...)
		}
	}

	labeled := make([]Span, 0, len(phraseRanges)+len(tokenRanges))
	for _, iv := range phraseRanges {
		labeled = append(labeled, Span{iv.Start, iv.End, LabelPhrase})
	}
	for _, iv := range tokenRanges {
		labeled = append(labeled, Span{iv.Start, iv.End, LabelToken})
	}
	sort.Slice(labeled, func(i, j int) bool {
		if labeled[i].Start != labeled[j].Start {
			return labeled[i].Start < labeled[j].Start
		}
		// Phrase ranges sort before token ranges at equal starts.
		return labeled[i].Label == LabelPhrase && labeled[j].Label == LabelToken
	})

	var out []Span
	for _, sp := range labeled {
		if sp.Label == LabelToken && overlapsPhrase(out, sp) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Label == sp.Label && sp.Start <= out[n-1].End {
			if sp.End > out[n-1].End {
				out[n-1].End = sp.End
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

func overlapsPhrase(emitted []Span, sp Span) bool {
	for _, e := range emitted {
		if e.Label == LabelPhrase && sp.Start < e.End && e.Start < sp.End {
			return true
		}
	}
	return false
}

// findPhraseRanges locates every non-overlapping literal occurrence of each
// phrase, left to right. The scan advances past a match so overlapping
// repeats of a short phrase are not double-counted.
func findPhraseRanges(text string, phrases []string) []Interval {
	runes := []rune(text)
	var out []Interval
	for _, p := range phrases {
		if p == "" {
			continue
		}
		phrase := []rune(p)
		for start := 0; ; {
			i := runeIndex(runes, phrase, start)
			if i < 0 {
				break
			}
			out = append(out, Interval{i, i + len(phrase)})
			start = i + len(phrase)
		}
	}
	return out
}

// runeIndex is strings.Index over rune slices starting at from.
func runeIndex(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// HTML renders text with its spans: literal segments escaped, labeled
// segments wrapped with the label's fixed style. Empty text renders empty;
// no spans renders the fully escaped text.
func HTML(text string, spans []Span) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	var b strings.Builder
	cur := 0
	for _, sp := range spans {
		if cur < sp.Start {
			b.WriteString(html.EscapeString(string(runes[cur:sp.Start])))
		}
		style := tokenStyle
		if sp.Label == LabelPhrase {
			style = phraseStyle
		}
		b.WriteString(`<span style="` + style + `">`)
		b.WriteString(html.EscapeString(string(runes[sp.Start:sp.End])))
		b.WriteString(`</span>`)
		cur = sp.End
	}
	if cur < len(runes) {
		b.WriteString(html.EscapeString(string(runes[cur:])))
	}
	return b.String()
}

// Render is the single-call form: compute spans, then render.
func Render(a *tokenize.Analyzer, text string, phrases []string, surfaceSet, readingSet map[string]struct{}) string {
	return HTML(text, Spans(a, text, phrases, surfaceSet, readingSet))
}
