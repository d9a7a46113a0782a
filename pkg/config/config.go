package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the user-level settings for kikitori.
type Config struct {
	// DBPath is the sqlite index database.
	DBPath string `toml:"db_path"`
	// MediaRoot is searched for media files when a subtitle has no
	// playable sibling.
	MediaRoot string `toml:"media_root,omitempty"`
	// CacheDir stores extracted audio snippets.
	CacheDir string `toml:"cache_dir"`
	// FFmpegPath overrides the transcoder binary; empty means "ffmpeg"
	// on PATH.
	FFmpegPath string `toml:"ffmpeg_path,omitempty"`
	// SnippetPadMS pads each extracted clip before and after the line.
	SnippetPadMS int `toml:"snippet_pad_ms"`
}

// Default returns a Config rooted in the platform data directory.
func Default() *Config {
	base := dataDir()
	return &Config{
		DBPath:       filepath.Join(base, "index.db"),
		CacheDir:     filepath.Join(base, "snippets"),
		SnippetPadMS: 400,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.toml")
}

// dataDir follows the platform convention: LOCALAPPDATA on windows,
// XDG_DATA_HOME elsewhere, with a home-relative fallback.
func dataDir() string {
	if runtime.GOOS == "windows" {
		if d := os.Getenv("LOCALAPPDATA"); d != "" {
			return filepath.Join(d, "kikitori")
		}
	}
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "kikitori")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "kikitori"
	}
	return filepath.Join(home, ".local", "share", "kikitori")
}

// Read decodes a Config from the provided reader.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path, or the default path when path is empty.
// A missing file yields the defaults rather than an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg, err := ReadFromFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Init writes cfg to path, refusing to clobber an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
