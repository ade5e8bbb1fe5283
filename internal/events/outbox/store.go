// Package outbox stores registry events in the same SQL transaction as the
// command that produced them and relays them to a publisher afterwards.
package outbox

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"harvestcert/internal/certification/models"
	txcontext "harvestcert/pkg/platform/tx"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Dialect holds the SQL that differs between backends.
type Dialect struct {
	Name    string
	Schema  string
	Insert  string
	Pending string
	Backlog string
	// markPublished flags delivered rows.
	markPublished func(ctx context.Context, q txcontext.Execer, ids []uuid.UUID, at time.Time) error
}

var Postgres = Dialect{
	Name:    "postgres",
	Schema:  postgresSchema,
	Insert:  `INSERT INTO event_outbox (id, batch_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
	Pending: `SELECT seq, payload FROM event_outbox WHERE published_at IS NULL ORDER BY seq LIMIT $1`,
	Backlog: `SELECT COUNT(*) FROM event_outbox WHERE published_at IS NULL`,
	markPublished: func(ctx context.Context, q txcontext.Execer, ids []uuid.UUID, at time.Time) error {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = id.String()
		}
		_, err := q.ExecContext(ctx,
			`UPDATE event_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			at, pq.Array(keys))
		return err
	},
}

var SQLite = Dialect{
	Name:    "sqlite",
	Schema:  sqliteSchema,
	Insert:  `INSERT INTO event_outbox (id, batch_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
	Pending: `SELECT seq, payload FROM event_outbox WHERE published_at IS NULL ORDER BY seq LIMIT ?`,
	Backlog: `SELECT COUNT(*) FROM event_outbox WHERE published_at IS NULL`,
	markPublished: func(ctx context.Context, q txcontext.Execer, ids []uuid.UUID, at time.Time) error {
		for _, id := range ids {
			if _, err := q.ExecContext(ctx, `UPDATE event_outbox SET published_at = ? WHERE id = ?`, at, id.String()); err != nil {
				return err
			}
		}
		return nil
	},
}

// Entry is a stored event awaiting delivery.
type Entry struct {
	Seq   int64
	Event models.Event
}

// Store implements the registry outbox port on a SQL database. Append joins
// the transaction carried by ctx, so the database must be the one backing
// the registry's kv store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New applies the outbox schema and returns a store.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("apply %s outbox schema: %w", dialect.Name, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Append(ctx context.Context, events []models.Event) error {
	q := txcontext.ExecerFrom(ctx, s.db)
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		if _, err := q.ExecContext(ctx, s.dialect.Insert,
			e.ID.String(),
			string(e.BatchID),
			string(e.Type),
			string(payload),
			e.OccurredAt,
		); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// Pending returns up to limit undelivered entries, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Pending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		var e models.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode outbox entry %d: %w", seq, err)
		}
		entries = append(entries, Entry{Seq: seq, Event: e})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished flags entries as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.dialect.markPublished(ctx, txcontext.ExecerFrom(ctx, s.db), ids, at); err != nil {
		return fmt.Errorf("mark %d outbox entries published: %w", len(ids), err)
	}
	return nil
}

// Backlog counts undelivered entries.
func (s *Store) Backlog(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.Backlog).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return n, nil
}
