package kv

import (
	"context"
	"sync"

	"harvestcert/pkg/platform/sentinel"
)

// Memory is a process-local Store. Updates are serialized.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, sentinel.ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (m *Memory) Update(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return sentinel.ErrUnavailable
	}
	txn := NewOverlay(memoryReader{m})
	if err := fn(ctx, txn); err != nil {
		return err
	}
	return txn.Writes(func(key string, value []byte) error {
		m.data[key] = value
		return nil
	})
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memoryReader reads without locking; only used while Update holds the lock.
type memoryReader struct{ m *Memory }

func (r memoryReader) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := r.m.data[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}
