package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"kikitori/pkg/config"
	"kikitori/pkg/highlight"
	"kikitori/pkg/index"
	"kikitori/pkg/ingest"
	"kikitori/pkg/jptext"
	"kikitori/pkg/media"
	"kikitori/pkg/search"
	"kikitori/pkg/store"
	"kikitori/pkg/tokenize"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kikitori",
	Short: "Find and replay lines from a subtitle and lyric corpus",
	Long: `kikitori indexes time-stamped Japanese text (subtitles, lyrics) and
searches it by both written form and reading, so a line heard as kana can be
found even when it was written in kanji.`,
	SilenceUsage: true,
}

// app bundles everything a command needs against one open index.
type app struct {
	cfg      *config.Config
	store    *store.Store
	analyzer *tokenize.Analyzer
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a, err := tokenize.NewAnalyzer()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load tokenizer dictionary: %w", err)
	}
	return &app{cfg: cfg, store: s, analyzer: a}, nil
}

func (a *app) Close() { a.store.Close() }

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// index command

var indexCmd = &cobra.Command{
	Use:   "index DIR [DIR...]",
	Short: "Build or update the search index from subtitle and lyric files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rebuild, _ := cmd.Flags().GetBool("rebuild")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if rebuild {
			if err := os.Remove(cfg.DBPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove old index: %w", err)
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		r := ingest.NewRunner(a.store, index.NewBuilder(a.analyzer))
		r.Logger = log.New(os.Stderr, "", log.LstdFlags)

		// The ingest worker runs in the background and reports through the
		// event channel; this goroutine stays interactive.
		events := make(chan ingest.Event, 16)
		r.Events = events
		type outcome struct {
			stats ingest.Stats
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			stats, err := r.Run(ctx, args)
			close(events)
			done <- outcome{stats, err}
		}()

		for ev := range events {
			switch ev.Kind {
			case ingest.EventFileIndexed:
				fmt.Printf("indexed %s (%d entries)\n", ev.Path, ev.Entries)
			case ingest.EventFileSkipped:
				fmt.Printf("skipped %s: %v\n", ev.Path, ev.Err)
			}
		}

		res := <-done
		if res.err != nil {
			return res.err
		}
		stats := res.stats
		fmt.Printf("done: %d files, %d new entries, %d already indexed, %d files skipped\n",
			stats.Files, stats.Entries, stats.Duplicates, stats.Failed)
		return nil
	},
}

// search command

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search the corpus by surface form and reading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		asHTML, _ := cmd.Flags().GetBool("html")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := search.NewSearcher(a.store, a.analyzer).Search(ctx, args[0], top)
		if err != nil {
			return err
		}
		if res.IndexMissing {
			fmt.Println("index not built yet; run `kikitori index` first")
			return nil
		}
		if len(res.Entries) == 0 {
			fmt.Println("no matches")
			return nil
		}

		for i, e := range res.Entries {
			line := e.Text
			if asHTML {
				line = highlight.Render(a.analyzer, e.Text, res.Query.Phrases,
					res.Query.SurfaceSet, res.Query.ReadingSet)
			}
			fmt.Printf("%2d. [%s - %s] %s", i+1, jptext.FormatMS(e.StartMS), jptext.FormatMS(e.EndMS), e.Title)
			if e.EpisodeOrTrack != "" {
				fmt.Printf(" (%s)", e.EpisodeOrTrack)
			}
			fmt.Printf("\n    %s\n", line)
		}
		return nil
	},
}

// play command

var playCmd = &cobra.Command{
	Use:   "play QUERY",
	Short: "Extract an audio snippet for the best matching line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pick, _ := cmd.Flags().GetInt("pick")
		choose, _ := cmd.Flags().GetInt("choose")
		bind, _ := cmd.Flags().GetBool("bind")
		mediaRoot, _ := cmd.Flags().GetString("media-root")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := search.NewSearcher(a.store, a.analyzer).Search(ctx, args[0], 10)
		if err != nil {
			return err
		}
		if res.IndexMissing {
			fmt.Println("index not built yet; run `kikitori index` first")
			return nil
		}
		if len(res.Entries) == 0 {
			fmt.Println("no matches")
			return nil
		}
		if pick < 1 || pick > len(res.Entries) {
			return fmt.Errorf("--pick %d out of range 1..%d", pick, len(res.Entries))
		}
		e := res.Entries[pick-1]

		if mediaRoot == "" {
			mediaRoot = a.cfg.MediaRoot
		}
		mediaPath := e.MediaPath
		if mediaPath == "" {
			mediaPath, err = chooseMedia(a.store, mediaRoot, e.SourcePath, choose, bind)
			if err != nil {
				return err
			}
			if mediaPath == "" {
				return nil
			}
		}

		cache := media.NewSnippetCache(a.cfg.CacheDir, a.cfg.FFmpegPath)
		if a.cfg.SnippetPadMS > 0 {
			cache.PadMS = a.cfg.SnippetPadMS
		}
		cache.Logger = log.New(os.Stderr, "", log.LstdFlags)

		clip, err := cache.Get(ctx, mediaPath, e.StartMS, e.EndMS)
		if err != nil {
			return fmt.Errorf("extract %s [%s - %s]: %w",
				mediaPath, jptext.FormatMS(e.StartMS), jptext.FormatMS(e.EndMS), err)
		}
		fmt.Println(clip)
		return nil
	},
}

// chooseMedia resolves candidates for the entry's source file. With one
// candidate (or an explicit --choose) it returns the pick, optionally
// persisting it; with several and no choice it lists them and returns "".
func chooseMedia(s *store.Store, mediaRoot, sourcePath string, choose int, bind bool) (string, error) {
	r := media.NewResolver(s, mediaRoot)
	candidates, err := r.Resolve(sourcePath)
	if errors.Is(err, media.ErrNoCandidates) {
		fmt.Println("no media candidates found; use --media-root or `kikitori config`")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if choose == 0 && len(candidates) > 1 {
		fmt.Printf("%d candidates for %s:\n", len(candidates), media.Stem(sourcePath))
		for i, c := range candidates {
			fmt.Printf("  %2d. %s\n", i+1, c)
		}
		fmt.Println("re-run with --choose N to select one")
		return "", nil
	}
	if choose == 0 {
		choose = 1
	}
	if choose < 1 || choose > len(candidates) {
		return "", fmt.Errorf("--choose %d out of range 1..%d", choose, len(candidates))
	}
	picked := candidates[choose-1]
	if bind {
		if err := r.Bind(sourcePath, picked); err != nil {
			return "", fmt.Errorf("persist media binding: %w", err)
		}
		fmt.Printf("bound %s -> %s\n", media.Stem(sourcePath), picked)
	}
	return picked, nil
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Init(path, config.Default()); err != nil {
			return err
		}
		fmt.Printf("configuration written to %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("db_path:        %s\n", cfg.DBPath)
		fmt.Printf("media_root:     %s\n", cfg.MediaRoot)
		fmt.Printf("cache_dir:      %s\n", cfg.CacheDir)
		fmt.Printf("ffmpeg_path:    %s\n", orDefault(cfg.FFmpegPath, "ffmpeg"))
		fmt.Printf("snippet_pad_ms: %s\n", strconv.Itoa(cfg.SnippetPadMS))
		return nil
	},
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	indexCmd.Flags().Bool("rebuild", false, "Delete the existing index and start over")

	searchCmd.Flags().IntP("top", "n", 20, "Maximum number of results")
	searchCmd.Flags().Bool("html", false, "Emit result lines with HTML highlight spans")

	playCmd.Flags().Int("pick", 1, "Which search result to play (1-based)")
	playCmd.Flags().Int("choose", 0, "Which media candidate to use (1-based)")
	playCmd.Flags().Bool("bind", false, "Remember the chosen media file for this source")
	playCmd.Flags().String("media-root", "", "Directory searched for media files")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}
