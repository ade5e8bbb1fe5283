// Package rediskv implements kv.Store on Redis with optimistic transactions.
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"harvestcert/internal/platform/kv"
	"harvestcert/pkg/platform/sentinel"
)

const (
	defaultPrefix  = "harvestcert:"
	defaultRetries = 5
	// versionKey is bumped by every committed Update; watching it detects
	// any concurrent writer.
	versionKey = "__version"
)

// Store keeps registry state under a key prefix.
type Store struct {
	client  *redis.Client
	prefix  string
	retries int
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces keys, letting several registries share one database.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithRetries sets how often a conflicting Update is retried.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  defaultPrefix,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, s.client, s.prefix+key)
}

// Update retries fn when another writer commits first. fn may therefore run
// more than once and must not have effects outside txn.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, txn kv.Txn) error) error {
	version := s.prefix + versionKey
	for attempt := 0; attempt < s.retries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			txn := kv.NewOverlay(watchReader{tx: rtx, prefix: s.prefix})
			if err := fn(ctx, txn); err != nil {
				return err
			}
			if txn.Len() == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				_ = txn.Writes(func(key string, value []byte) error {
					pipe.Set(ctx, s.prefix+key, value, 0)
					return nil
				})
				pipe.Incr(ctx, version)
				return nil
			})
			return err
		}, version)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update after %d attempts: %w", s.retries, sentinel.ErrConflict)
}

func (s *Store) Close() error {
	return s.client.Close()
}

type watchReader struct {
	tx     *redis.Tx
	prefix string
}

func (r watchReader) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.tx, r.prefix+key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, c getter, key string) ([]byte, error) {
	value, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}
