// Package tx passes the running *sql.Tx of a registry command through a
// context, so every SQL store touched by the command joins one transaction.
package tx

import (
	"context"
	"database/sql"
)

// Execer is the query surface shared by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type activeTx struct{}

// WithTx returns ctx unchanged for a nil tx.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, activeTx{}, t)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(activeTx{}).(*sql.Tx)
	return t, ok && t != nil
}

// ExecerFrom prefers the transaction in ctx over db.
func ExecerFrom(ctx context.Context, db *sql.DB) Execer {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}
