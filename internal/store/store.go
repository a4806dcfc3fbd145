// Package store persists session records. Only the latest record of each
// session is kept; there is no history.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/session"
)

// ErrNotFound is returned by Load and Delete for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Summary is the listing view of a stored session.
type Summary struct {
	ID        string        `json:"id"`
	State     session.State `json:"state"`
	NextSeed  int64         `json:"next_seed"`
	KPIs      kpi.Set       `json:"kpis"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionStore saves and loads session records.
type SessionStore interface {
	// Save inserts or replaces the record with rec.ID.
	Save(ctx context.Context, rec session.Record) error
	Load(ctx context.Context, id string) (session.Record, error)
	Delete(ctx context.Context, id string) error

	// List returns every stored session, most recently updated first.
	List(ctx context.Context) ([]Summary, error)

	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. path is the SQLite file and dsn the
// Postgres connection string; each is ignored by the other drivers.
func Open(ctx context.Context, driver, path, dsn string) (SessionStore, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case "", DriverSQLite:
		return NewSQLiteStore(ctx, path)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func summarize(rec session.Record) Summary {
	return Summary{
		ID:        rec.ID,
		State:     rec.State,
		NextSeed:  rec.NextSeed,
		KPIs:      rec.KPIs,
		UpdatedAt: rec.UpdatedAt,
	}
}
