package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// exerciseStore runs the shared contract against any Store.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, KeyDeviceID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want %v", err, ErrNotFound)
	}

	if err := store.Set(ctx, KeyDeviceID, "4"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx, KeyDeviceID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "4" {
		t.Errorf("Get() = %q, want %q", got, "4")
	}

	if err := store.Set(ctx, KeyDeviceID, "9"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, err = store.Get(ctx, KeyDeviceID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "9" {
		t.Errorf("Get() after overwrite = %q, want %q", got, "9")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path)
	exerciseStore(t, store)

	// A second store on the same file sees the persisted value.
	reopened := NewFileStore(path)
	got, err := reopened.Get(context.Background(), KeyDeviceID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "9" {
		t.Errorf("Get() after reopen = %q, want %q", got, "9")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStore(path).Get(context.Background(), KeyDeviceID)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want decode error", err)
	}
}

func TestSQLStore_SQLiteMemory(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := NewSQLStore(db, DialectSQLite)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	// Idempotent.
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() second call error = %v", err)
	}
	exerciseStore(t, store)
}

func TestOpenSQL_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	store, err := OpenSQL(ctx, DialectSQLite, path)
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	exerciseStore(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQL(ctx, DialectSQLite, path)
	if err != nil {
		t.Fatalf("OpenSQL() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyDeviceID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "9" {
		t.Errorf("Get() after reopen = %q, want %q", got, "9")
	}
}

func TestSQLStore_Placeholder(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectSQLite, "?"},
		{DialectPostgres, "$2"},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			s := &SQLStore{dialect: tt.dialect}
			if got := s.placeholder(2); got != tt.want {
				t.Errorf("placeholder(2) = %q, want %q", got, tt.want)
			}
		})
	}
}
