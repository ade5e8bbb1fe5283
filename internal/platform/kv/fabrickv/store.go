// Package fabrickv adapts a Hyperledger Fabric world state to kv.Store.
//
// Fabric itself provides the transaction: writes are collected in the
// proposal's write set and discarded when the chaincode returns an error.
// Reads of the world state do not observe the proposal's own writes, so
// Update buffers them.
package fabrickv

import (
	"context"
	"fmt"

	"harvestcert/internal/platform/kv"
	"harvestcert/pkg/platform/sentinel"
)

// WorldState is the subset of shim.ChaincodeStubInterface the store needs.
type WorldState interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
}

// Store is bound to the stub of a single transaction proposal.
type Store struct {
	state WorldState
}

func New(state WorldState) *Store {
	return &Store{state: state}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.state.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	if value == nil {
		return nil, sentinel.ErrNotFound
	}
	return value, nil
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, txn kv.Txn) error) error {
	txn := kv.NewOverlay(s)
	if err := fn(ctx, txn); err != nil {
		return err
	}
	return txn.Writes(func(key string, value []byte) error {
		if err := s.state.PutState(key, value); err != nil {
			return fmt.Errorf("put state %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) Close() error {
	return nil
}
