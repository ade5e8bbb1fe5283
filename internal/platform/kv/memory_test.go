package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"harvestcert/pkg/platform/sentinel"
)

type MemorySuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func (s *MemorySuite) TestMissingKey() {
	_, err := s.store.Get(s.ctx, "CERT_missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemorySuite) TestCommitAndReadYourWrites() {
	err := s.store.Update(s.ctx, func(ctx context.Context, txn Txn) error {
		s.Require().NoError(txn.Put(ctx, "a", []byte("1")))
		got, err := txn.Get(ctx, "a")
		s.Require().NoError(err)
		s.Equal("1", string(got))
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("1", string(got))
}

func (s *MemorySuite) TestRollbackOnError() {
	boom := errors.New("boom")
	err := s.store.Update(s.ctx, func(ctx context.Context, txn Txn) error {
		s.Require().NoError(txn.Put(ctx, "a", []byte("1")))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.Get(s.ctx, "a")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemorySuite) TestReturnedValuesAreCopies() {
	s.Require().NoError(s.store.Update(s.ctx, func(ctx context.Context, txn Txn) error {
		return txn.Put(ctx, "a", []byte("xyz"))
	}))
	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	got[0] = 'Q'

	again, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("xyz", string(again))
}

func (s *MemorySuite) TestClosed() {
	s.Require().NoError(s.store.Close())
	_, err := s.store.Get(s.ctx, "a")
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)
}
