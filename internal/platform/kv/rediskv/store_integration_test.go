//go:build integration

package rediskv_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"harvestcert/internal/platform/kv"
	"harvestcert/internal/platform/kv/rediskv"
	"harvestcert/pkg/platform/sentinel"
	"harvestcert/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *rediskv.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = rediskv.New(s.redis.Client, rediskv.WithRetries(50))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRollbackLeavesNoWrites() {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.store.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
		s.Require().NoError(txn.Put(ctx, "CERT_A", []byte("x")))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.Get(ctx, "CERT_A")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentIncrements verifies that read-modify-write updates from
// competing goroutines never lose a write.
func (s *RedisStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
				n := 0
				if raw, err := txn.Get(ctx, "COUNTER"); err == nil {
					n = int(raw[0])
				} else if !errors.Is(err, sentinel.ErrNotFound) {
					return err
				}
				return txn.Put(ctx, "COUNTER", []byte{byte(n + 1)})
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	raw, err := s.store.Get(ctx, "COUNTER")
	s.Require().NoError(err)
	s.Equal(writers, int(raw[0]))
}
