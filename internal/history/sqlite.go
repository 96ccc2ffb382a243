// Package history provides persistent per-session scan history storage.
// The store is a plain key-value layer over serialized scan records; the
// ten-record cap and newest-first order are enforced by the analysis
// service, not here.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vigil-scan-server/internal/domain"
)

// SQLiteStore implements domain.HistoryStore using SQLite. This is the
// default backend for single-node deployments.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		scanned_at DATETIME NOT NULL,
		position INTEGER NOT NULL,
		payload TEXT NOT NULL,
		UNIQUE(session_id, record_id)
	);

	CREATE INDEX IF NOT EXISTS idx_history_session ON scan_history(session_id, position);
	CREATE INDEX IF NOT EXISTS idx_history_scanned_at ON scan_history(scanned_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Get retrieves the session's scan records in stored order. A session with
// no history returns domain.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]domain.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM scan_history
		WHERE session_id = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var record domain.ScanRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

// Put replaces the session's history with the given records, preserving
// slice order. The replace happens in one transaction so readers never see
// a half-written list.
func (s *SQLiteStore) Put(ctx context.Context, sessionID string, records []domain.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM scan_history WHERE session_id = ?", sessionID,
	); err != nil {
		return fmt.Errorf("failed to clear session history: %w", err)
	}

	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_history (session_id, record_id, name, scanned_at, position, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, record.ID, record.Name, record.Date, i, string(payload)); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the total number of stored records across all sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_history").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
