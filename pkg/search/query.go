// Package search compiles free-text queries into FTS5 match expressions and
// runs them against the store.
package search

import (
	"regexp"
	"strings"

	"kikitori/pkg/tokenize"
)

// Matches quoted spans in any of the supported quotation styles. The first
// non-empty group of each match is the phrase.
var quoteRE = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|『([^』]+)』|「([^」]+)」`)

// Query is the compiled form of one search request. Queries are ephemeral
// and never persisted.
type Query struct {
	Raw        string
	Phrases    []string            // quoted literals, in extraction order
	SurfaceSet map[string]struct{} // deduplicated surface tokens of Raw
	ReadingSet map[string]struct{} // deduplicated reading tokens of Raw
	MatchExpr  string              // FTS5 MATCH expression, "" when empty
}

// Empty reports whether tokenization produced nothing to match on. Callers
// must not issue a storage query for an empty Query.
func (q *Query) Empty() bool { return q.MatchExpr == "" }

// Compile extracts quoted phrases, tokenizes the whole raw query, and builds
// the boolean match expression: all surface tokens ANDed on the surface
// column, all reading tokens ANDed on the reading column, the two column
// groups ORed so a kanji query still matches kana input and vice versa.
func Compile(a *tokenize.Analyzer, raw string) *Query {
	q := &Query{
		Raw:        raw,
		SurfaceSet: make(map[string]struct{}),
		ReadingSet: make(map[string]struct{}),
	}

	for _, m := range quoteRE.FindAllStringSubmatch(raw, -1) {
		for _, g := range m[1:] {
			if g != "" {
				if p := strings.TrimSpace(g); p != "" {
					q.Phrases = append(q.Phrases, p)
				}
				break
			}
		}
	}

	// Tokenize the raw query as a whole, quotes included; ordered unique
	// token lists feed the expression, the sets feed highlighting.
	var surfaces, readings []string
	for _, tok := range a.Tokens(raw) {
		if s := sanitizeToken(tok.Surface); s != "" {
			if _, seen := q.SurfaceSet[s]; !seen {
				q.SurfaceSet[s] = struct{}{}
				surfaces = append(surfaces, s)
			}
		}
		if r := sanitizeToken(tok.Reading); r != "" {
			if _, seen := q.ReadingSet[r]; !seen {
				q.ReadingSet[r] = struct{}{}
				readings = append(readings, r)
			}
		}
	}

	var parts []string
	if len(surfaces) > 0 {
		parts = append(parts, andClause("text_tok", surfaces))
	}
	if len(readings) > 0 {
		parts = append(parts, andClause("reading_tok", readings))
	}
	q.MatchExpr = strings.Join(parts, " OR ")
	return q
}

// sanitizeToken strips quote characters so a token cannot break the MATCH
// syntax, and drops tokens that are blank afterwards.
func sanitizeToken(t string) string {
	t = strings.ReplaceAll(t, `"`, "")
	t = strings.ReplaceAll(t, `'`, "")
	return strings.TrimSpace(t)
}

func andClause(column string, tokens []string) string {
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = column + ":" + t
	}
	return "(" + strings.Join(terms, " AND ") + ")"
}
