package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects placeholder and driver specifics for SQLStore.
type Dialect string

const (
	// DialectSQLite targets modernc.org/sqlite (driver name "sqlite").
	DialectSQLite Dialect = "sqlite"

	// DialectPostgres targets github.com/lib/pq (driver name "postgres").
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	ownsDB  bool
}

// NewSQLStore wraps an open database. The database is not closed by Close.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQL opens dsn with the driver registered for dialect and ensures the
// schema. The caller must blank-import the driver package.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", dialect, err)
	}

	store := &SQLStore{db: db, dialect: dialect, ownsDB: true}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the preferences table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS roverpanel_preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

// Get returns the value for key.
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := fmt.Sprintf(`SELECT value FROM roverpanel_preferences WHERE key = %s`, s.placeholder(1))
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO roverpanel_preferences (key, value, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.placeholder(1), s.placeholder(2), s.placeholder(3))

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	return nil
}

// Close closes the database when the store opened it.
func (s *SQLStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var _ Store = (*SQLStore)(nil)
