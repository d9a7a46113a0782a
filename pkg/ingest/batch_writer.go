package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBatchWriterClosed is returned by Submit after Close.
var ErrBatchWriterClosed = errors.New("batch writer is closed")

// WriteFunc performs one entry's worth of writes inside the batch
// transaction. Implementations must use the supplied tx for every
// statement so the whole batch commits or rolls back together.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter groups many small index writes into large transactions.
// Inserting subtitle entries one transaction at a time is the dominant
// cost of indexing a corpus, so writes are buffered and committed in
// batches of batchSize, or after flushInterval for a trickle of input.
type BatchWriter struct {
	db            *sql.DB
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []WriteFunc
	closed  bool
	lastErr error

	// OnError, when set, observes every failed batch commit. The error
	// is also retained and returned from Close.
	OnError func(error)

	stop chan struct{}
	done chan struct{}
}

// NewBatchWriter starts the background committer. batchSize bounds how
// many writes share one transaction; flushInterval bounds how stale a
// buffered write can get.
func NewBatchWriter(db *sql.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 1
	}
	bw := &BatchWriter{
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go bw.committer()
	return bw
}

// Submit buffers one write. It triggers a synchronous flush when the
// buffer reaches the batch size, so a commit failure surfaces to the
// submitter that tipped the batch over.
func (bw *BatchWriter) Submit(fn WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, fn)
	if len(bw.pending) >= bw.batchSize {
		return bw.flushLocked(context.Background())
	}
	return nil
}

// Flush commits everything buffered so far.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked(ctx)
}

// Close flushes the remaining buffer, stops the committer, and reports
// the first batch error seen over the writer's lifetime.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	flushErr := bw.flushLocked(context.Background())
	bw.mu.Unlock()

	close(bw.stop)
	<-bw.done

	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.lastErr != nil {
		return bw.lastErr
	}
	return flushErr
}

func (bw *BatchWriter) committer() {
	defer close(bw.done)
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bw.mu.Lock()
			err := bw.flushLocked(context.Background())
			bw.mu.Unlock()
			if err != nil && bw.OnError != nil {
				bw.OnError(err)
			}
		case <-bw.stop:
			return
		}
	}
}

// flushLocked commits the pending buffer in one transaction. Callers
// hold bw.mu. The buffer is cleared even on failure; retrying a batch
// that contains a poison write would wedge the committer.
func (bw *BatchWriter) flushLocked(ctx context.Context) error {
	if len(bw.pending) == 0 {
		return nil
	}
	batch := bw.pending
	bw.pending = nil

	err := bw.executeBatch(ctx, batch)
	if err != nil {
		bw.lastErr = err
	}
	return err
}

func (bw *BatchWriter) executeBatch(ctx context.Context, batch []WriteFunc) error {
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, fn := range batch {
		if err := fn(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("batch write: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
