package main

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/youssefsiam38/roverpanel/storage"
)

// openStore opens the preference store named by target and returns a func
// releasing it.
//
//	""                   ~/.roverpanel/state.json
//	"memory"             nothing persisted
//	"sqlite:<path>"      SQLite through modernc.org/sqlite
//	"postgres://..."     PostgreSQL through pgx
//	"pq:postgres://..."  PostgreSQL through lib/pq
//	anything else        JSON file at that path
func openStore(ctx context.Context, target string) (storage.Store, func(), error) {
	switch {
	case target == "":
		path, err := storage.DefaultFilePath()
		if err != nil {
			return nil, nil, err
		}
		return storage.NewFileStore(path), func() {}, nil

	case target == "memory":
		return storage.NewMemoryStore(), func() {}, nil

	case strings.HasPrefix(target, "sqlite:"):
		return openSQL(ctx, storage.DialectSQLite, strings.TrimPrefix(target, "sqlite:"))

	case strings.HasPrefix(target, "pq:"):
		return openSQL(ctx, storage.DialectPostgres, strings.TrimPrefix(target, "pq:"))

	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		store, pool, err := storage.OpenPostgres(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return storage.NewFileStore(target), func() {}, nil
	}
}

func openSQL(ctx context.Context, dialect storage.Dialect, dsn string) (storage.Store, func(), error) {
	if dsn == "" {
		return nil, nil, fmt.Errorf("storage: empty %s dsn", dialect)
	}
	store, err := storage.OpenSQL(ctx, dialect, dsn)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
