// Package store persists entries and their token index in SQLite. The full
// text index is an FTS5 external-content table over the two token columns,
// so builds need the fts5 build tag on github.com/mattn/go-sqlite3.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrIndexNotBuilt reports that no searchable index exists yet. Callers
// should surface it as an advisory, not a failure.
var ErrIndexNotBuilt = errors.New("search index not built")

const schemaSQL = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=OFF;

CREATE TABLE IF NOT EXISTS entries(
    id TEXT UNIQUE,
    media_type TEXT,
    title TEXT,
    episode_or_track TEXT,
    media_path TEXT,
    source_path TEXT,
    start_ms INTEGER,
    end_ms INTEGER,
    text TEXT,
    context_prev TEXT,
    context_next TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS fts USING fts5(
    text_tok,
    reading_tok,
    content='entries',
    content_rowid='rowid'
);

CREATE TABLE IF NOT EXISTS media_links(
    stem TEXT PRIMARY KEY,
    media_path TEXT
)`

// DBExecutor allows store functions to run against either *sql.DB or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serializes writers, and :memory: databases are per-connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw connection for transaction management.
func (s *Store) DB() *sql.DB { return s.db }

// InsertEntry writes an entry and its token index fields. Inserts are
// insert-or-ignore keyed on the unique id: the first write wins and repeats
// return inserted=false without touching the index.
func InsertEntry(ex DBExecutor, e Entry, surfaceTok, readingTok string) (inserted bool, err error) {
	res, err := ex.Exec(`INSERT OR IGNORE INTO entries
        (id, media_type, title, episode_or_track, media_path, source_path, start_ms, end_ms, text, context_prev, context_next)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.MediaType, e.Title, e.EpisodeOrTrack, e.MediaPath, e.SourcePath,
		e.StartMS, e.EndMS, e.Text, e.ContextPrev, e.ContextNext)
	if err != nil {
		return false, fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	if _, err := ex.Exec(`INSERT INTO fts(rowid, text_tok, reading_tok) VALUES (?,?,?)`,
		rowid, surfaceTok, readingTok); err != nil {
		return false, fmt.Errorf("index entry %s: %w", e.ID, err)
	}
	return true, nil
}

// CreateAuxIndexes adds the secondary indexes used for grouping and filtering.
// Called once after a full build; cheap to repeat.
func (s *Store) CreateAuxIndexes() error {
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_entries_title ON entries(title)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_media_type ON entries(media_type)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CountEntries returns the number of stored entries.
func (s *Store) CountEntries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

const searchSelect = `
    SELECT e.id, e.media_type, e.title, e.episode_or_track, e.media_path,
           e.source_path, e.start_ms, e.end_ms, e.text, e.context_prev, e.context_next
    FROM fts
    JOIN entries e ON e.rowid = fts.rowid
    WHERE fts MATCH ?`

// Search runs the compiled MATCH expression and returns up to limit entries
// ordered best-first by bm25 relevance. If the runtime SQLite lacks bm25 the
// same query is retried unordered; a missing index maps to ErrIndexNotBuilt.
func (s *Store) Search(ctx context.Context, matchExpr string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, searchSelect+` ORDER BY bm25(fts) LIMIT ?`, matchExpr, limit)
	if err != nil {
		switch {
		case isIndexMissingErr(err):
			return nil, ErrIndexNotBuilt
		case isNoBM25Err(err):
			rows, err = s.db.QueryContext(ctx, searchSelect+` LIMIT ?`, matchExpr, limit)
			if err != nil {
				return nil, fmt.Errorf("search: %w", err)
			}
		default:
			return nil, fmt.Errorf("search: %w", err)
		}
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanEntry validates the result tuple at the storage boundary; every
// retrieved record becomes a typed Entry.
func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var mediaType, title, episode, mediaPath, sourcePath, text, prev, next sql.NullString
	if err := rows.Scan(&e.ID, &mediaType, &title, &episode, &mediaPath,
		&sourcePath, &e.StartMS, &e.EndMS, &text, &prev, &next); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.MediaType = mediaType.String
	e.Title = title.String
	e.EpisodeOrTrack = episode.String
	e.MediaPath = mediaPath.String
	e.SourcePath = sourcePath.String
	e.Text = text.String
	e.ContextPrev = prev.String
	e.ContextNext = next.String
	return e, nil
}

func isIndexMissingErr(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such table: fts") || strings.Contains(s, "no such module: fts5")
}

func isNoBM25Err(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no such function: bm25")
}

// GetMediaLink returns the persisted binding for a source stem if any. The
// caller decides whether the bound path is still valid on disk.
func (s *Store) GetMediaLink(stem string) (MediaLink, bool, error) {
	var link MediaLink
	err := s.db.QueryRow(`SELECT stem, media_path FROM media_links WHERE stem = ?`, stem).
		Scan(&link.Stem, &link.MediaPath)
	if err == sql.ErrNoRows {
		return MediaLink{}, false, nil
	}
	if err != nil {
		return MediaLink{}, false, err
	}
	return link, true, nil
}

// BindMedia persists a user-confirmed stem to media path binding, replacing
// any previous binding for the stem.
func (s *Store) BindMedia(stem, mediaPath string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO media_links(stem, media_path) VALUES (?,?)`, stem, mediaPath)
	return err
}
