package store

// Entry is one time-stamped line of source text. Entries are immutable after
// ingest; re-inserting an existing ID is a no-op.
type Entry struct {
	ID             string
	MediaType      string // "song", "anime", ...
	Title          string
	EpisodeOrTrack string
	MediaPath      string // optional known-good media path
	SourcePath     string // originating subtitle/lyric file
	StartMS        int
	EndMS          int
	Text           string
	ContextPrev    string
	ContextNext    string
}

// MediaLink is a persisted user-confirmed binding from a source file stem to
// an absolute media path.
type MediaLink struct {
	Stem      string
	MediaPath string
}
