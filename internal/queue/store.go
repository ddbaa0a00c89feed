// Package queue is the offline durable queue for write operations. Incident
// and SOS reports that cannot reach the backend are persisted locally and
// replayed when connectivity returns; nothing queued survives only in
// memory.
package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the SQLite database holding queued reports, with write
// serialization.
type Store struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Open opens (creating if needed) the queue database with WAL mode enabled
// and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// SQLite supports a single writer; one connection plus the write mutex
	// keeps concurrent enqueue/replay from conflicting.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping queue database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Printf("Queue: failed to set synchronous pragma: %v", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create queue schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) insert(ctx context.Context, r Report) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO offline_reports (id, report_type, latitude, longitude, accuracy, reported_at_utc, details, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Latitude, r.Longitude, r.Accuracy,
		r.ReportedAt.UTC().Format(time.RFC3339), r.Details, r.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to persist report %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, "DELETE FROM offline_reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	return nil
}

func (s *Store) markFailed(ctx context.Context, id string, cause error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		UPDATE offline_reports
		SET status = 'failed', attempts = attempts + 1, last_error = ?
		WHERE id = ?`,
		cause.Error(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark report %s failed: %w", id, err)
	}
	return nil
}

func (s *Store) listReplayable(ctx context.Context) ([]Report, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, report_type, latitude, longitude, accuracy, reported_at_utc, details, status, attempts
		FROM offline_reports
		WHERE status IN ('offline', 'failed')
		ORDER BY queued_at_utc`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		var reportedAt string
		if err := rows.Scan(&r.ID, &r.Type, &r.Latitude, &r.Longitude, &r.Accuracy, &reportedAt, &r.Details, &r.Status, &r.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan queued report: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, reportedAt); err == nil {
			r.ReportedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM offline_reports").Scan(&n)
	return n, err
}
