package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/vigil-scan-server/internal/domain"
)

// PostgresStore implements domain.HistoryStore using PostgreSQL, for
// deployments where scan history must survive node replacement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Get retrieves the session's scan records in stored order.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) ([]domain.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM scan_history
		WHERE session_id = $1
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var record domain.ScanRecord
		if err := json.Unmarshal(payload, &record); err != nil {
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

// Put replaces the session's history with the given records in one
// transaction.
func (s *PostgresStore) Put(ctx context.Context, sessionID string, records []domain.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM scan_history WHERE session_id = $1", sessionID,
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
			VALUES ($1, $2, $3, $4, $5, $6)
		`, sessionID, record.ID, record.Name, record.Date, i, payload); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the total number of stored records across all sessions.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_history").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
