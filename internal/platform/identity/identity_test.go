package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
)

func newService() *Service {
	return NewService("test-signing-key", "harvestcert", "harvestcert-api")
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService()

	token, err := svc.Issue("bob", time.Hour)
	require.NoError(t, err)

	who, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.Identity("bob"), who)
}

func TestIssueRequiresIdentity(t *testing.T) {
	_, err := newService().Issue("", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestValidateRejects(t *testing.T) {
	svc := newService()
	other := NewService("other-key", "harvestcert", "harvestcert-api")
	wrongAudience := NewService("test-signing-key", "harvestcert", "someone-else")

	foreign, err := other.Issue("bob", time.Hour)
	require.NoError(t, err)
	misaddressed, err := wrongAudience.Issue("bob", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "bob",
			Issuer:   "harvestcert",
			Audience: jwt.ClaimStrings{"harvestcert-api"},
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not-a-token",
		"wrong key":      foreign,
		"wrong audience": misaddressed,
		"missing expiry": noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, ""))
		})
	}
}

func TestValidateExpired(t *testing.T) {
	svc := newService()
	token, err := svc.Issue("bob", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func TestValidateRequiresSubject(t *testing.T) {
	svc := newService()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "harvestcert",
			Audience:  jwt.ClaimStrings{"harvestcert-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has no subject"))
}
