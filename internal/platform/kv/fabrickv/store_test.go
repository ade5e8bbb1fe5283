package fabrickv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestcert/internal/platform/kv"
	"harvestcert/pkg/platform/sentinel"
)

type fakeState struct {
	data   map[string][]byte
	writes []string
}

func (f *fakeState) GetState(key string) ([]byte, error) {
	return f.data[key], nil
}

func (f *fakeState) PutState(key string, value []byte) error {
	f.data[key] = value
	f.writes = append(f.writes, key)
	return nil
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := New(&fakeState{data: map[string][]byte{}})
		_, err := s.Get(ctx, "CERT_X")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("buffered writes flush in order", func(t *testing.T) {
		state := &fakeState{data: map[string][]byte{}}
		s := New(state)
		err := s.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
			require.NoError(t, txn.Put(ctx, "B", []byte("1")))
			require.NoError(t, txn.Put(ctx, "A", []byte("2")))
			require.NoError(t, txn.Put(ctx, "B", []byte("3")))
			got, err := txn.Get(ctx, "B")
			require.NoError(t, err)
			assert.Equal(t, "3", string(got))
			assert.Empty(t, state.writes)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A"}, state.writes)
		assert.Equal(t, "3", string(state.data["B"]))
	})

	t.Run("failed callback writes nothing", func(t *testing.T) {
		state := &fakeState{data: map[string][]byte{}}
		s := New(state)
		err := s.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
			_ = txn.Put(ctx, "A", []byte("1"))
			return errors.New("rejected")
		})
		require.Error(t, err)
		assert.Empty(t, state.writes)
	})
}
