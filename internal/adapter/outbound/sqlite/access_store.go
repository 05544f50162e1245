// Package sqlite provides the embedded SQLite access-log store with
// batched inserts and time-based retention cleanup.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/palisade-http/palisade/internal/domain/access"
)

const schema = `
CREATE TABLE IF NOT EXISTS access_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          INTEGER NOT NULL,
	request_id  TEXT    NOT NULL,
	method      TEXT    NOT NULL,
	path        TEXT    NOT NULL,
	status      INTEGER NOT NULL,
	bytes       INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	remote_ip   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_log_ts ON access_log(ts);
`

// AccessStoreConfig holds configuration for the SQLite access store.
type AccessStoreConfig struct {
	// Path is the database file path.
	Path string
	// RetentionDays is the number of days to keep records (default 7).
	RetentionDays int
}

// AccessStore implements access.Store on an embedded SQLite database.
type AccessStore struct {
	db            *sql.DB
	retentionDays int
	logger        *slog.Logger
	cancel        context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewAccessStore opens (or creates) the database, bootstraps the schema,
// runs retention cleanup, and starts the hourly cleanup goroutine.
func NewAccessStore(cfg AccessStoreConfig, logger *slog.Logger) (*AccessStore, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open access database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent appends.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap access schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AccessStore{
		db:            db,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		cancel:        cancel,
	}

	s.runCleanup(ctx)
	go s.startCleanupLoop(ctx)

	return s, nil
}

// Append writes records in a single transaction.
func (s *AccessStore) Append(ctx context.Context, records ...access.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin access tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO access_log (ts, request_id, method, path, status, bytes, duration_ms, remote_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare access insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Timestamp.UTC().UnixNano(),
			rec.RequestID,
			rec.Method,
			rec.Path,
			rec.Status,
			int64(rec.Bytes),
			rec.DurationMS,
			rec.RemoteIP,
		)
		if err != nil {
			return fmt.Errorf("insert access record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit access tx: %w", err)
	}
	return nil
}

// Flush is a no-op: each Append commits its own transaction.
func (s *AccessStore) Flush(_ context.Context) error {
	return nil
}

// Recent returns up to n of the most recent records, newest first.
func (s *AccessStore) Recent(ctx context.Context, n int) ([]access.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, request_id, method, path, status, bytes, duration_ms, remote_ip
		 FROM access_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent access records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []access.Record
	for rows.Next() {
		var rec access.Record
		var ts, bytes int64
		if err := rows.Scan(&ts, &rec.RequestID, &rec.Method, &rec.Path,
			&rec.Status, &bytes, &rec.DurationMS, &rec.RemoteIP); err != nil {
			return nil, fmt.Errorf("scan access record: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Bytes = uint64(bytes)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close stops the cleanup goroutine and closes the database.
func (s *AccessStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()
	return s.db.Close()
}

// runCleanup deletes records older than the retention period.
func (s *AccessStore) runCleanup(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays).UnixNano()

	res, err := s.db.ExecContext(ctx, `DELETE FROM access_log WHERE ts < ?`, cutoff)
	if err != nil {
		s.logger.Error("access cleanup failed", "error", err)
		return
	}

	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Info("access cleanup completed", "deleted", deleted)
	}
}

// startCleanupLoop runs retention cleanup every hour until the context is cancelled.
func (s *AccessStore) startCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

// Compile-time interface verification.
var _ access.Store = (*AccessStore)(nil)
