package media

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/singleflight"
)

// ErrExtractFailed wraps any transcoder failure. Callers treat it as "no
// snippet available" rather than aborting.
var ErrExtractFailed = errors.New("snippet extraction failed")

// DefaultPadMS is the audio padded before and after the entry's own window
// so the line is not clipped mid-word.
const DefaultPadMS = 400

// minSnippetBytes guards against a partially written or empty cache file
// being served as a hit.
const minSnippetBytes = 1024

// SnippetCache extracts bounded audio clips and reuses them by content
// address: the cache filename is derived from (media, start, end, pad), so
// an identical request never invokes the transcoder twice.
type SnippetCache struct {
	Dir        string
	FFmpegPath string
	PadMS      int
	Logger     *log.Logger

	group singleflight.Group
}

// NewSnippetCache returns a cache rooted at dir using the given ffmpeg
// binary (empty means "ffmpeg" on PATH).
func NewSnippetCache(dir, ffmpegPath string) *SnippetCache {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &SnippetCache{Dir: dir, FFmpegPath: ffmpegPath, PadMS: DefaultPadMS}
}

// Path reports the cache file an extraction for this window would produce,
// whether or not it exists yet.
func (c *SnippetCache) Path(mediaPath string, startMS, endMS int) string {
	key := fmt.Sprintf("%s|%d|%d|%d", mediaPath, startMS, endMS, c.PadMS)
	return filepath.Join(c.Dir, fmt.Sprintf("%x.mp3", md5.Sum([]byte(key))))
}

// Get returns a playable audio clip covering [startMS, endMS] plus padding,
// extracting it on a cache miss. Concurrent requests for the same window
// share one extraction.
func (c *SnippetCache) Get(ctx context.Context, mediaPath string, startMS, endMS int) (string, error) {
	out := c.Path(mediaPath, startMS, endMS)
	if snippetUsable(out) {
		return out, nil
	}
	_, err, _ := c.group.Do(out, func() (any, error) {
		if snippetUsable(out) {
			return nil, nil
		}
		return nil, c.extract(ctx, mediaPath, startMS, endMS, out)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *SnippetCache) extract(ctx context.Context, mediaPath string, startMS, endMS int, out string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}

	windowStart := startMS - c.PadMS
	if windowStart < 0 {
		windowStart = 0
	}
	durationMS := (endMS - startMS) + 2*c.PadMS
	if durationMS < 1 {
		durationMS = 1
	}

	cmd := exec.CommandContext(ctx, c.FFmpegPath,
		"-ss", msToSeconds(windowStart),
		"-i", mediaPath,
		"-t", msToSeconds(durationMS),
		"-vn",
		"-ac", "2",
		"-ar", "48000",
		"-b:a", "160k",
		"-y",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		c.logf("transcode %s [%d..%d]: %v\n%s", mediaPath, startMS, endMS, err, output)
		os.Remove(out)
		return fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	if !snippetUsable(out) {
		os.Remove(out)
		return fmt.Errorf("%w: output missing or truncated", ErrExtractFailed)
	}
	return nil
}

func (c *SnippetCache) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func snippetUsable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > minSnippetBytes
}

func msToSeconds(ms int) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}
