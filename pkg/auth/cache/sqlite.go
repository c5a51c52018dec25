package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// SQLite stores sessions in a single SQLite database file. Compared to the
// File backend it gives atomic replacement for free and keeps every key in
// one artifact, which suits tooling that already ships a state database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the
// sessions table exists.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure sessions table: %w", err)
	}
	return s, nil
}

// NewSQLiteWithDB wraps an existing connection. Used by tests.
func NewSQLiteWithDB(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure sessions table: %w", err)
	}
	return s, nil
}

func (s *SQLite) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		username TEXT NOT NULL,
		service TEXT NOT NULL,
		entry TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (username, service)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLite) Load(ctx context.Context, username string, service auth.Service) (*auth.CachedSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT entry FROM sessions WHERE username = ? AND service = ?`,
		username, string(service),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry auth.CachedSession
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		// Corrupt row: evict and miss.
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM sessions WHERE username = ? AND service = ?`,
			username, string(service))
		return nil, nil
	}
	return &entry, nil
}

func (s *SQLite) Store(ctx context.Context, session *auth.CachedSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (username, service, entry, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (username, service) DO UPDATE SET
			entry = excluded.entry,
			updated_at = CURRENT_TIMESTAMP`,
		session.Username, string(session.Service), string(data))
	return err
}

func (s *SQLite) Invalidate(ctx context.Context, username string, service auth.Service) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE username = ? AND service = ?`,
		username, string(service))
	return err
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
