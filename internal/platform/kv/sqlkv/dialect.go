package sqlkv

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Dialect captures the SQL that differs between backends.
type Dialect struct {
	Name   string
	Schema string
	Select string
	Upsert string
	// Lock serializes writers across processes; nil when the connection pool
	// already does (SQLite with a single connection).
	Lock func(ctx context.Context, tx *sql.Tx) error
}

// registryLockKey is the pg advisory lock id guarding registry writes.
const registryLockKey int64 = 0x68617276657374

var Postgres = Dialect{
	Name:   "postgres",
	Schema: postgresSchema,
	Select: `SELECT value FROM registry_state WHERE key = $1`,
	Upsert: `INSERT INTO registry_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	Lock: func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, registryLockKey); err != nil {
			return fmt.Errorf("acquire registry lock: %w", err)
		}
		return nil
	},
}

var SQLite = Dialect{
	Name:   "sqlite",
	Schema: sqliteSchema,
	Select: `SELECT value FROM registry_state WHERE key = ?`,
	Upsert: `INSERT INTO registry_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
}
