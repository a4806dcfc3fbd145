package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// PostgresStore keeps session records in a Postgres table.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn, pings it and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a dsn")
	}

	openMu.Lock()
	db, err := sqlOpen("pgx", dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	inner, err := newSQLStore(ctx, db, postgresDialect)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: inner}, nil
}
