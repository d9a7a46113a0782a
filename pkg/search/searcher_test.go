package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kikitori/pkg/index"
	"kikitori/pkg/store"
)

func newTestSearcher(t *testing.T, texts ...string) (*Searcher, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	a := newTestAnalyzer(t)
	b := index.NewBuilder(a)
	for i, text := range texts {
		f := b.Build(text)
		e := store.Entry{
			ID:         "test|" + string(rune('a'+i)),
			MediaType:  "anime",
			Title:      "ep1",
			SourcePath: "/corpus/ep1.srt",
			StartMS:    i * 1000,
			EndMS:      i*1000 + 2000,
			Text:       text,
		}
		_, err := store.InsertEntry(s.DB(), e, f.SurfaceTok, f.ReadingTok)
		require.NoError(t, err)
	}
	return NewSearcher(s, a), s
}

func TestSearchFindsTokenizedText(t *testing.T) {
	sr, _ := newTestSearcher(t, "君の名は", "今日は学校に行きました")

	res, err := sr.Search(context.Background(), "学校", 10)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Contains(t, res.Entries[0].Text, "学校")
}

func TestSearchPhraseFilter(t *testing.T) {
	sr, _ := newTestSearcher(t, "君の名は", "君の前は")

	res, err := sr.Search(context.Background(), `"君の名は"`, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"君の名は"}, res.Query.Phrases)
	require.Len(t, res.Entries, 1, "a single differing character must fail the phrase filter")
	assert.Equal(t, "君の名は", res.Entries[0].Text)
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	sr, _ := newTestSearcher(t, "君の名は")

	res, err := sr.Search(context.Background(), "", 10)
	require.NoError(t, err)
	assert.True(t, res.Query.Empty())
	assert.Empty(t, res.Entries)
	assert.False(t, res.IndexMissing)
}

func TestSearchCapsResults(t *testing.T) {
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = "今日は学校に行きました"
	}
	sr, _ := newTestSearcher(t, texts...)

	res, err := sr.Search(context.Background(), "学校", 3)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
}

func TestSearchMissingIndexAdvisory(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	// Drop the index table to simulate a store without a built index.
	_, err = s.DB().Exec("DROP TABLE fts")
	require.NoError(t, err)

	sr := NewSearcher(s, newTestAnalyzer(t))
	res, err := sr.Search(context.Background(), "学校", 10)
	require.NoError(t, err, "a missing index is an advisory, not a failure")
	assert.True(t, res.IndexMissing)
	assert.Empty(t, res.Entries)
}
