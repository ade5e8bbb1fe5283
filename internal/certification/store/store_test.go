package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	ctx context.Context
	kv  *kv.Memory
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = kv.NewMemory()
}

func (s *StoreSuite) write(fn func(w Writer) error) {
	s.Require().NoError(s.kv.Update(s.ctx, func(ctx context.Context, txn kv.Txn) error {
		return fn(NewWriter(txn))
	}))
}

func (s *StoreSuite) TestDefaults() {
	r := NewReader(s.kv)

	params, err := r.QualityParameters(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.DefaultQualityParameters(), params)

	stats, err := r.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats)

	batches, err := r.FacilityBatches(s.ctx, "FAC-unknown")
	s.Require().NoError(err)
	s.NotNil(batches)
	s.Empty(batches)

	ok, err := r.IsCertifier(s.ctx, "nobody")
	s.Require().NoError(err)
	s.False(ok)

	_, err = r.Certificate(s.ctx, "B1")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = r.Owner(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestCertificateRoundTrip() {
	c, err := models.NewCertificate(models.Registration{BatchID: "B1", FacilityID: "F1", Weight: 5000, Density: 2500})
	s.Require().NoError(err)
	s.write(func(w Writer) error { return w.PutCertificate(s.ctx, c) })

	got, err := NewReader(s.kv).Certificate(s.ctx, "B1")
	s.Require().NoError(err)
	s.Equal(c, got)

	exists, err := NewReader(s.kv).HasCertificate(s.ctx, "B1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StoreSuite) TestFacilityIndexPreservesOrder() {
	s.write(func(w Writer) error {
		for _, b := range []id.BatchID{"B2", "B1", "B3"} {
			if err := w.AppendFacilityBatch(s.ctx, "F1", b); err != nil {
				return err
			}
		}
		return nil
	})
	got, err := NewReader(s.kv).FacilityBatches(s.ctx, "F1")
	s.Require().NoError(err)
	s.Equal([]id.BatchID{"B2", "B1", "B3"}, got)
}

func (s *StoreSuite) TestDisabledFlagKeepsKey() {
	s.write(func(w Writer) error { return w.SetLab(s.ctx, "LabA", true) })
	s.write(func(w Writer) error { return w.SetLab(s.ctx, "LabA", false) })

	raw, err := s.kv.Get(s.ctx, labKey("LabA"))
	s.Require().NoError(err)
	s.Equal("false", string(raw))

	ok, err := NewReader(s.kv).IsLabAuthorized(s.ctx, "LabA")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestCorruptRecord() {
	s.Require().NoError(s.kv.Update(s.ctx, func(ctx context.Context, txn kv.Txn) error {
		return txn.Put(ctx, statsKey, []byte("{not json"))
	}))
	_, err := NewReader(s.kv).Statistics(s.ctx)
	s.Error(err)
	s.NotErrorIs(err, sentinel.ErrNotFound)
}
