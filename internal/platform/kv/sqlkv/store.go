// Package sqlkv implements kv.Store on a relational database. Postgres
// (lib/pq) and SQLite (modernc.org/sqlite) are supported.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"harvestcert/internal/platform/kv"
	"harvestcert/pkg/platform/sentinel"
	txcontext "harvestcert/pkg/platform/tx"
)

// Store persists registry state in the registry_state table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database and applies the schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("apply %s schema: %w", dialect.Name, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// OpenPostgres connects with lib/pq.
func OpenPostgres(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(ctx, db, Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens (or creates) a SQLite file. Use ":memory:" for tests.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite allows a single writer and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s, err := New(ctx, db, SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the pool so stores sharing the database (the outbox) can join
// the command transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, txcontext.ExecerFrom(ctx, s.db), s.dialect, key)
}

// Update runs fn inside a SQL transaction carried in the callback ctx.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, txn kv.Txn) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.dialect.Lock != nil {
		if err = s.dialect.Lock(ctx, tx); err != nil {
			return err
		}
	}

	txCtx := txcontext.WithTx(ctx, tx)
	if err = fn(txCtx, &sqlTxn{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type sqlTxn struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTxn) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, t.tx, t.dialect, key)
}

func (t *sqlTxn) Put(ctx context.Context, key string, value []byte) error {
	if _, err := t.tx.ExecContext(ctx, t.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func get(ctx context.Context, q txcontext.Execer, d Dialect, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, d.Select, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}
