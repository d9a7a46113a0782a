// Package parse turns subtitle files (.srt, .ass), lyric files (.lrc) and
// newline-delimited record dumps (.jsonl) into store entries.
package parse

import (
	"fmt"
	"path/filepath"
	"strings"

	"kikitori/pkg/jptext"
	"kikitori/pkg/store"
)

// Exts are the source file extensions the corpus scanner recognizes.
var Exts = []string{".srt", ".ass", ".lrc", ".jsonl"}

// File parses one source file by extension.
func File(path string) ([]store.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lrc":
		return LRC(path)
	case ".srt":
		return SRT(path)
	case ".ass":
		return ASS(path)
	case ".jsonl":
		return JSONL(path)
	default:
		return nil, fmt.Errorf("unsupported source file: %s", path)
	}
}

// entryID derives the stable entry identity from its source and start time.
func entryID(sourcePath string, startMS int) string {
	return fmt.Sprintf("%s|%d", sourcePath, startMS)
}

// newEntry builds an entry with cleaned text; returns ok=false when the text
// is blank after cleaning and the entry should be dropped.
func newEntry(mediaType, sourcePath, text string, startMS, endMS int) (store.Entry, bool) {
	text = jptext.Clean(text)
	if text == "" {
		return store.Entry{}, false
	}
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return store.Entry{
		ID:         entryID(sourcePath, startMS),
		MediaType:  mediaType,
		Title:      stem,
		SourcePath: sourcePath,
		StartMS:    startMS,
		EndMS:      endMS,
		Text:       text,
	}, true
}

// fillContext sets each entry's context to the text of its temporal
// neighbors within the same file. Entries must already be in time order.
func fillContext(entries []store.Entry) {
	for i := range entries {
		if i > 0 {
			entries[i].ContextPrev = entries[i-1].Text
		}
		if i < len(entries)-1 {
			entries[i].ContextNext = entries[i+1].Text
		}
	}
}
