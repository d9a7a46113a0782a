package ingest

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "bw.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE rows (n INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM rows`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func insertN(n int) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO rows (n) VALUES (?)`, n)
		return err
	}
}

func TestBatchWriterFlushesAtBatchSize(t *testing.T) {
	db := newTestDB(t)
	bw := NewBatchWriter(db, 3, time.Hour)
	defer bw.Close()

	for i := 0; i < 2; i++ {
		if err := bw.Submit(insertN(i)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("rows before batch full: %d, want 0", got)
	}
	if err := bw.Submit(insertN(2)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := countRows(t, db); got != 3 {
		t.Fatalf("rows after batch full: %d, want 3", got)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	db := newTestDB(t)
	bw := NewBatchWriter(db, 100, 30*time.Millisecond)
	defer bw.Close()

	if err := bw.Submit(insertN(1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for countRows(t, db) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval flush never committed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBatchWriterCloseFlushesRemainder(t *testing.T) {
	db := newTestDB(t)
	bw := NewBatchWriter(db, 100, time.Hour)

	for i := 0; i < 5; i++ {
		if err := bw.Submit(insertN(i)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := countRows(t, db); got != 5 {
		t.Fatalf("rows after Close: %d, want 5", got)
	}
	if err := bw.Submit(insertN(9)); !errors.Is(err, ErrBatchWriterClosed) {
		t.Fatalf("Submit after Close = %v, want ErrBatchWriterClosed", err)
	}
}

func TestBatchWriterRollsBackFailedBatch(t *testing.T) {
	db := newTestDB(t)
	bw := NewBatchWriter(db, 3, time.Hour)

	if err := bw.Submit(insertN(1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return errors.New("poison write")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	err := bw.Submit(insertN(2))
	if err == nil {
		t.Fatal("flush with poison write succeeded, want error")
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("rows after rollback: %d, want 0", got)
	}
	if cerr := bw.Close(); cerr == nil {
		t.Fatal("Close after failed batch = nil, want retained error")
	}
}
