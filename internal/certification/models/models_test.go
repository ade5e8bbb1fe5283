package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "harvestcert/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusCertified, true},
		{StatusPending, StatusRejected, true},
		{StatusRejected, StatusCertified, true},
		{StatusCertified, StatusRevoked, true},
		{StatusPending, StatusRevoked, false},
		{StatusRejected, StatusRevoked, false},
		{StatusRevoked, StatusCertified, false},
		{StatusCertified, StatusRejected, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	_, err := ParseStatus("archived")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCertificateLifecycle(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("new certificate is pending and untested", func(t *testing.T) {
		c, err := NewCertificate(Registration{BatchID: "B1", FacilityID: "F1", Weight: 10})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, c.Status)
		assert.False(t, c.Nutrition.IsTested())
		assert.Nil(t, c.LabInfo)
		assert.True(t, c.CertifiedAt.IsZero())
	})

	t.Run("empty batch id rejected", func(t *testing.T) {
		_, err := NewCertificate(Registration{FacilityID: "F1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidParameters))
	})

	t.Run("certify then revoke", func(t *testing.T) {
		c, _ := NewCertificate(Registration{BatchID: "B1", FacilityID: "F1", Notes: "n"})
		require.Error(t, c.CanRevoke())
		require.NoError(t, c.CanCertify())

		c.ApplyCertification("bob", 85, now)
		assert.Equal(t, now, c.CertifiedAt)
		assert.EqualValues(t, 85, c.QualityScore)
		assert.Error(t, c.CanCertify())

		require.NoError(t, c.CanRevoke())
		c.ApplyRevocation("contamination")
		assert.Equal(t, StatusRevoked, c.Status)
		assert.Equal(t, "n; Revoked: contamination", c.Notes)
		assert.Equal(t, now, c.CertifiedAt)
	})

	t.Run("rejected batch may be certified later", func(t *testing.T) {
		c, _ := NewCertificate(Registration{BatchID: "B1", FacilityID: "F1"})
		c.ApplyRejection()
		assert.NoError(t, c.CanCertify())
		assert.True(t, c.CertifiedAt.IsZero())
	})
}

func TestQualityGate(t *testing.T) {
	p := DefaultQualityParameters()
	passing := NutritionalProfile{Protein: 6200, Phycocyanin: 1600}

	assert.True(t, p.Evaluate(passing, 85).Passed)
	assert.True(t, p.Evaluate(NutritionalProfile{Protein: 6000, Phycocyanin: 1500}, 60).Passed)

	res := p.Evaluate(NutritionalProfile{Protein: 5999, Phycocyanin: 1600}, 85)
	assert.False(t, res.Passed)
	assert.Len(t, res.Reasons, 1)

	assert.False(t, p.Evaluate(NutritionalProfile{Protein: 6200, Phycocyanin: 1499}, 85).Passed)
	assert.False(t, p.Evaluate(passing, 59).Passed)
	assert.Len(t, p.Evaluate(NutritionalProfile{Protein: 1, Phycocyanin: 1}, 10).Reasons, 3)
}

func TestQualityParametersValidate(t *testing.T) {
	require.NoError(t, DefaultQualityParameters().Validate())

	p := DefaultQualityParameters()
	p.MinProtein = 10001
	assert.True(t, dErrors.HasCode(p.Validate(), dErrors.CodeInvalidParameters))

	p = DefaultQualityParameters()
	p.MaxMoisture = 20000
	assert.True(t, dErrors.HasCode(p.Validate(), dErrors.CodeInvalidParameters))
}

func TestStatisticsRecord(t *testing.T) {
	var s Statistics
	require.NoError(t, s.Record(5000))
	require.NoError(t, s.Record(0))
	assert.Equal(t, Statistics{TotalCertificates: 2, TotalWeight: 5000}, s)

	t.Run("overflowing weight is refused", func(t *testing.T) {
		full := Statistics{TotalCertificates: 1, TotalWeight: math.MaxUint64 - 10}
		err := full.Record(11)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidParameters))
		assert.Equal(t, Statistics{TotalCertificates: 1, TotalWeight: math.MaxUint64 - 10}, full)

		require.NoError(t, full.Record(10))
		assert.Equal(t, uint64(math.MaxUint64), full.TotalWeight)
	})
}
