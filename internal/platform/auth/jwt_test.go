package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	token, err := IssueToken("s3cret", "ngo-a", "recipient-org", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "ngo-a", claims.OrgID)
	assert.Equal(t, "recipient-org", claims.Role)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := IssueToken("s3cret", "ngo-a", "recipient-org", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("other", token)
	require.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	claims := Claims{
		OrgID: "donor-1",
		Role:  "donor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ValidateToken("s3cret", token)
	require.Error(t, err)
}

func TestValidate_MissingIdentity(t *testing.T) {
	token, err := IssueToken("s3cret", "", "donor", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("s3cret", token)
	require.Error(t, err)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{OrgID: "x", Role: "donor"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken("s3cret", token)
	require.Error(t, err)
}
