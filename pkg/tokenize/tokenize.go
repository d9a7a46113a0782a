// Package tokenize wraps the kagome morphological analyzer. It is the only
// package that touches kagome directly; everything else consumes Token values
// with surface forms, katakana readings, and rune offsets.
package tokenize

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is a single analyzed unit of text. Start and End are rune offsets
// into the analyzed string; tokens are contiguous and non-overlapping and
// together cover the whole input.
type Token struct {
	Surface string // the text as written (e.g. "食べ")
	Reading string // katakana reading; equals Surface when the dictionary has none
	Start   int    // rune offset of the first character
	End     int    // rune offset one past the last character
}

// Analyzer is a shared, stateless tokenizer handle. Constructing one loads
// the IPA dictionary, which is expensive; create a single instance at startup
// and pass it to every component that needs it.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates the analyzer with the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Tokens segments text. Search mode is fixed process-wide: it splits compound
// words into shorter units, which favors recall when matching queries.
func (a *Analyzer) Tokens(text string) []Token {
	if text == "" {
		return nil
	}
	raw := a.t.Analyze(text, tokenizer.Search)
	out := make([]Token, 0, len(raw))
	for _, tok := range raw {
		if tok.Class == tokenizer.DUMMY {
			continue
		}

		// IPA features: 0..3 POS, 4..5 conjugation, 6 base form, 7 reading,
		// 8 pronunciation. A "*" reading means the dictionary has none.
		reading := ""
		features := tok.Features()
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		if strings.TrimSpace(reading) == "" {
			reading = tok.Surface
		}

		out = append(out, Token{
			Surface: tok.Surface,
			Reading: reading,
			Start:   tok.Start,
			End:     tok.End,
		})
	}
	return out
}

// SurfaceTokens returns the ordered non-blank surface forms of text.
func (a *Analyzer) SurfaceTokens(text string) []string {
	var out []string
	for _, tok := range a.Tokens(text) {
		if s := strings.TrimSpace(tok.Surface); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ReadingTokens returns the ordered non-blank reading forms of text, falling
// back to the surface form for tokens without a dictionary reading.
func (a *Analyzer) ReadingTokens(text string) []string {
	var out []string
	for _, tok := range a.Tokens(text) {
		if r := strings.TrimSpace(tok.Reading); r != "" {
			out = append(out, r)
		}
	}
	return out
}
