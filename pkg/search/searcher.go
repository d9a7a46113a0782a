package search

import (
	"context"
	"errors"
	"strings"

	"kikitori/pkg/store"
	"kikitori/pkg/tokenize"
)

// candidateFactor is how many times the result cap is requested from storage
// before the phrase post-filter runs.
const candidateFactor = 5

// Results is the outcome of one search request.
type Results struct {
	Query   *Query
	Entries []store.Entry
	// IndexMissing is set when no searchable index exists yet; it is a
	// zero-result outcome distinct from a genuine empty match.
	IndexMissing bool
}

// Searcher executes compiled queries against the store and applies the
// phrase post-filter. It is synchronous and safe to call from the
// interactive path.
type Searcher struct {
	store    *store.Store
	analyzer *tokenize.Analyzer
}

// NewSearcher wires the store and the shared analyzer.
func NewSearcher(s *store.Store, a *tokenize.Analyzer) *Searcher {
	return &Searcher{store: s, analyzer: a}
}

// Search compiles raw and returns up to limit ranked entries. Relevance
// ordering comes from the storage engine and is not recomputed here. Records
// must contain every quoted phrase as a literal substring to survive the
// post-filter.
func (s *Searcher) Search(ctx context.Context, raw string, limit int) (*Results, error) {
	q := Compile(s.analyzer, raw)
	res := &Results{Query: q}
	if q.Empty() {
		return res, nil
	}

	rows, err := s.store.Search(ctx, q.MatchExpr, limit*candidateFactor)
	if err != nil {
		if errors.Is(err, store.ErrIndexNotBuilt) {
			res.IndexMissing = true
			return res, nil
		}
		return nil, err
	}

	if len(q.Phrases) > 0 {
		rows = filterPhrases(rows, q.Phrases)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	res.Entries = rows
	return res, nil
}

// filterPhrases keeps entries whose text contains every phrase literally.
// No normalization happens here: phrases come from the query exactly as
// typed.
func filterPhrases(rows []store.Entry, phrases []string) []store.Entry {
	out := rows[:0]
	for _, e := range rows {
		if containsAll(e.Text, phrases) {
			out = append(out, e)
		}
	}
	return out
}

func containsAll(text string, phrases []string) bool {
	for _, p := range phrases {
		if !strings.Contains(text, p) {
			return false
		}
	}
	return true
}
