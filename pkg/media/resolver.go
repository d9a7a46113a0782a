package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kikitori/pkg/store"
)

// ErrNoCandidates is returned when every resolution strategy comes up empty.
var ErrNoCandidates = errors.New("no media candidates found")

// mediaExts is the recognized set of playable extensions. Video and audio
// are interchangeable here: a snippet extraction takes the audio track
// either way.
var mediaExts = map[string]bool{
	".mkv": true, ".mp4": true, ".ts": true, ".m4v": true, ".avi": true, ".mov": true,
	".mp3": true, ".flac": true, ".m4a": true, ".aac": true, ".wav": true, ".ogg": true,
}

// LinkStore is the persisted stem-to-media binding lookup.
type LinkStore interface {
	GetMediaLink(stem string) (store.MediaLink, bool, error)
	BindMedia(stem, mediaPath string) error
}

// Resolver finds the media file an entry's audio should be cut from.
type Resolver struct {
	Links     LinkStore
	MediaRoot string

	// TopLevelLimit bounds the unanchored root listing; without a stem to
	// search for, enumerating a large media tree is not worth it.
	TopLevelLimit int
}

// NewResolver wires a resolver against the binding store and configured
// media root. Either may be empty.
func NewResolver(links LinkStore, mediaRoot string) *Resolver {
	return &Resolver{Links: links, MediaRoot: mediaRoot, TopLevelLimit: 50}
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolve returns candidate media paths for an entry, in preference order.
//
// A confirmed binding whose target still exists wins outright. Otherwise
// candidates accumulate from the source file's own directory (same stem,
// then any media file) and from the media root (recursive stem search, or
// a bounded top-level listing when there is no stem to anchor on). Bindings
// pointing at files that have since disappeared are ignored, not deleted;
// the next confirmation overwrites them.
func (r *Resolver) Resolve(sourcePath string) ([]string, error) {
	stem := ""
	if sourcePath != "" {
		stem = Stem(sourcePath)
	}

	if r.Links != nil && stem != "" {
		link, ok, err := r.Links.GetMediaLink(stem)
		if err != nil {
			return nil, fmt.Errorf("look up media binding: %w", err)
		}
		if ok && fileExists(link.MediaPath) {
			return []string{link.MediaPath}, nil
		}
	}

	var candidates []string
	if sourcePath != "" {
		candidates = append(candidates, sameDirCandidates(sourcePath, stem)...)
	}
	if r.MediaRoot != "" {
		if stem != "" {
			candidates = append(candidates, r.rootStemSearch(stem)...)
		} else if len(candidates) == 0 {
			candidates = append(candidates, r.rootTopLevel()...)
		}
	}

	candidates = dedup(candidates)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// Bind persists a confirmed stem-to-path choice.
func (r *Resolver) Bind(sourcePath, mediaPath string) error {
	if r.Links == nil {
		return errors.New("no binding store configured")
	}
	abs, err := filepath.Abs(mediaPath)
	if err != nil {
		return err
	}
	return r.Links.BindMedia(Stem(sourcePath), abs)
}

// sameDirCandidates prefers siblings sharing the subtitle's stem and only
// falls back to everything playable in the directory when none share it.
func sameDirCandidates(sourcePath, stem string) []string {
	dir := filepath.Dir(sourcePath)
	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var sameStem, anyMedia []string
	for _, de := range listing {
		if de.IsDir() || !isMediaFile(de.Name()) {
			continue
		}
		p := filepath.Join(dir, de.Name())
		anyMedia = append(anyMedia, p)
		if Stem(de.Name()) == stem {
			sameStem = append(sameStem, p)
		}
	}
	if len(sameStem) > 0 {
		return sameStem
	}
	return anyMedia
}

func (r *Resolver) rootStemSearch(stem string) []string {
	var found []string
	filepath.WalkDir(r.MediaRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isMediaFile(path) && Stem(path) == stem {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	return found
}

func (r *Resolver) rootTopLevel() []string {
	listing, err := os.ReadDir(r.MediaRoot)
	if err != nil {
		return nil
	}
	var found []string
	for _, de := range listing {
		if de.IsDir() || !isMediaFile(de.Name()) {
			continue
		}
		found = append(found, filepath.Join(r.MediaRoot, de.Name()))
		if len(found) >= r.TopLevelLimit {
			break
		}
	}
	return found
}

func isMediaFile(path string) bool {
	return mediaExts[strings.ToLower(filepath.Ext(path))]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dedup(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
