package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"kikitori/pkg/jptext"
	"kikitori/pkg/store"
)

// jsonlRecord mirrors the newline-delimited export format.
type jsonlRecord struct {
	ID             string `json:"id"`
	MediaType      string `json:"media_type"`
	Title          string `json:"title"`
	EpisodeOrTrack string `json:"episode_or_track"`
	MediaPath      string `json:"media_path"`
	SourcePath     string `json:"source_path"`
	StartMS        int    `json:"start_ms"`
	EndMS          int    `json:"end_ms"`
	Text           string `json:"text"`
	ContextPrev    string `json:"context_prev"`
	ContextNext    string `json:"context_next"`
}

// JSONL parses a newline-delimited record dump. Records whose text is blank
// after cleaning are dropped; blank lines are skipped.
func JSONL(path string) ([]store.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []store.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		text := jptext.Clean(rec.Text)
		if text == "" {
			continue
		}
		id := rec.ID
		if id == "" {
			id = entryID(rec.SourcePath, rec.StartMS)
		}
		entries = append(entries, store.Entry{
			ID:             id,
			MediaType:      rec.MediaType,
			Title:          rec.Title,
			EpisodeOrTrack: rec.EpisodeOrTrack,
			MediaPath:      rec.MediaPath,
			SourcePath:     rec.SourcePath,
			StartMS:        rec.StartMS,
			EndMS:          rec.EndMS,
			Text:           text,
			ContextPrev:    jptext.Clean(rec.ContextPrev),
			ContextNext:    jptext.Clean(rec.ContextNext),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
