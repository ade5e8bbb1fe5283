// Package kv defines the durable key-value contract the registry persists
// through, plus an in-memory implementation.
//
// Every registry command runs inside exactly one Update call. Backends make
// the writes of a successful Update visible atomically and discard them when
// fn returns an error.
package kv

import (
	"context"
)

// Reader reads single keys. Missing keys return sentinel.ErrNotFound.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Txn is the view handed to an Update callback. Reads observe the
// transaction's own pending writes.
type Txn interface {
	Reader
	Put(ctx context.Context, key string, value []byte) error
}

// Store is a transactional key-value store.
type Store interface {
	Reader
	// Update runs fn in a transaction. The ctx passed to fn may carry
	// backend state (for example a *sql.Tx, see pkg/platform/tx).
	Update(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error
	Close() error
}

// Overlay is a Txn that buffers writes over a Reader. Backends without
// read-your-writes semantics (Fabric world state, Redis MULTI) use it.
type Overlay struct {
	base    Reader
	pending map[string][]byte
	order   []string
}

func NewOverlay(base Reader) *Overlay {
	return &Overlay{base: base, pending: map[string][]byte{}}
}

func (o *Overlay) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := o.pending[key]; ok {
		return clone(v), nil
	}
	return o.base.Get(ctx, key)
}

func (o *Overlay) Put(_ context.Context, key string, value []byte) error {
	if _, ok := o.pending[key]; !ok {
		o.order = append(o.order, key)
	}
	o.pending[key] = clone(value)
	return nil
}

// Writes calls fn for every buffered write in first-write order.
func (o *Overlay) Writes(fn func(key string, value []byte) error) error {
	for _, k := range o.order {
		if err := fn(k, o.pending[k]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of buffered keys.
func (o *Overlay) Len() int {
	return len(o.order)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
