package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/session"
)

// sqlStore is the database/sql implementation shared by SQLite and
// Postgres.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*sqlStore, error) {
	if err := InitSchema(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &sqlStore{db: db, dialect: d}, nil
}

// Save implements SessionStore.
func (s *sqlStore) Save(ctx context.Context, rec session.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO sessions (id, state, next_seed, service_level, stockout_risk_customers,
			avg_lead_time, cost_index, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			next_seed = excluded.next_seed,
			service_level = excluded.service_level,
			stockout_risk_customers = excluded.stockout_risk_customers,
			avg_lead_time = excluded.avg_lead_time,
			cost_index = excluded.cost_index,
			payload = excluded.payload,
			updated_at = excluded.updated_at`),
		rec.ID, string(rec.State), rec.NextSeed,
		rec.KPIs.ServiceLevel, rec.KPIs.StockoutRiskCustomers, rec.KPIs.AvgLeadTime, rec.KPIs.CostIndex,
		payload, rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", rec.ID, err)
	}
	return nil
}

// Load implements SessionStore.
func (s *sqlStore) Load(ctx context.Context, id string) (session.Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT payload FROM sessions WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, fmt.Errorf("loading %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("loading %s: %w", id, err)
	}
	return decodeRecord(payload)
}

// Delete implements SessionStore.
func (s *sqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	return nil
}

// List implements SessionStore.
func (s *sqlStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, next_seed, service_level, stockout_risk_customers, avg_lead_time, cost_index, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			state   string
			k       kpi.Set
			updated int64
		)
		if err := rows.Scan(&sum.ID, &state, &sum.NextSeed,
			&k.ServiceLevel, &k.StockoutRiskCustomers, &k.AvgLeadTime, &k.CostIndex, &updated); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.State = session.State(state)
		sum.KPIs = k
		sum.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close implements SessionStore.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
