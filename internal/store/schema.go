package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// dialect covers the differences between the SQL backends.
type dialect struct {
	name       string
	blobType   string
	intType    string
	positional bool // $1, $2 instead of ?
}

var (
	sqliteDialect   = dialect{name: DriverSQLite, blobType: "BLOB", intType: "INTEGER"}
	postgresDialect = dialect{name: DriverPostgres, blobType: "BYTEA", intType: "BIGINT", positional: true}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schemaV1 returns the statements creating the initial schema. KPI columns
// duplicate what is inside the payload so List never decodes records.
func (d dialect) schemaV1() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    next_seed ` + d.intType + ` NOT NULL,
    service_level INTEGER NOT NULL,
    stockout_risk_customers INTEGER NOT NULL,
    avg_lead_time INTEGER NOT NULL,
    cost_index INTEGER NOT NULL,
    payload ` + d.blobType + ` NOT NULL,
    updated_at ` + d.intType + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
)`,
	}
}

// InitSchema creates the schema on a fresh database and applies
// migrations on an existing one. SQLite databases are integrity-checked
// first.
func InitSchema(ctx context.Context, db *sql.DB, d dialect) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		if err := createSchema(ctx, db, d); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if d.name == DriverSQLite {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}

	if currentVersion < SchemaVersion {
		if err := migrateSchema(ctx, db, currentVersion); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func createSchema(ctx context.Context, db *sql.DB, d dialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range d.schemaV1() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		d.rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`),
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// migrateSchema applies migrations from currentVersion to SchemaVersion.
// There is only one version so far.
func migrateSchema(ctx context.Context, db *sql.DB, currentVersion int) error {
	_ = currentVersion
	return nil
}

// ValidateIntegrity runs PRAGMA integrity_check on a SQLite database.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	return rows.Err()
}
