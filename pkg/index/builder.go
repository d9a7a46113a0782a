// Package index derives the searchable token fields stored alongside each
// entry.
package index

import (
	"strings"

	"kikitori/pkg/jptext"
	"kikitori/pkg/tokenize"
)

// Fields are the two token columns persisted for full-text search. Both are
// space-joined ordered token lists derived purely from the entry text.
type Fields struct {
	SurfaceTok string // e.g. "君 の 名 は"
	ReadingTok string // e.g. "キミ ノ ナ ハ"
}

// Builder turns cleaned entry text into index fields.
type Builder struct {
	analyzer *tokenize.Analyzer
}

// NewBuilder wraps a shared analyzer.
func NewBuilder(a *tokenize.Analyzer) *Builder {
	return &Builder{analyzer: a}
}

// Build tokenizes text and returns its index fields. Identical text always
// yields identical fields.
func (b *Builder) Build(text string) Fields {
	text = jptext.Clean(text)
	if text == "" {
		return Fields{}
	}
	return Fields{
		SurfaceTok: strings.Join(b.analyzer.SurfaceTokens(text), " "),
		ReadingTok: strings.Join(b.analyzer.ReadingTokens(text), " "),
	}
}
