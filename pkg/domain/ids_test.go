package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "harvestcert/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	t.Run("rejects empty and blank values", func(t *testing.T) {
		for _, in := range []string{"", "   ", "\t"} {
			_, err := ParseBatchID(in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects oversized values", func(t *testing.T) {
		_, err := ParseFacilityID(strings.Repeat("f", MaxIDLength+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParseDeviceID("DEV\x001")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		batch, err := ParseBatchID("  BATCH001 ")
		require.NoError(t, err)
		assert.Equal(t, BatchID("BATCH001"), batch)

		lab, err := ParseLabName("Spirulina Labs")
		require.NoError(t, err)
		assert.Equal(t, LabName("Spirulina Labs"), lab)

		who, err := ParseIdentity("bob")
		require.NoError(t, err)
		assert.False(t, who.IsNil())
	})
}
