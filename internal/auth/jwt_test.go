package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(secret, Identity{AccountID: "acct-1", Email: "jane@x.com", Name: "Jane"}, time.Hour)
	require.NoError(t, err)

	id, err := ValidateToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, &Identity{AccountID: "acct-1", Email: "jane@x.com", Name: "Jane"}, id)
}

func TestValidateTokenRejects(t *testing.T) {
	expired, err := GenerateToken(secret, Identity{AccountID: "acct-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.Error(t, err)

	other, err := GenerateToken([]byte("other"), Identity{AccountID: "acct-1"}, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(secret, other)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "acct-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(secret, none)
	assert.Error(t, err)

	_, err = ValidateToken(secret, "not-a-token")
	assert.Error(t, err)
}

func TestGenerateTokenRequiresSecretAndAccount(t *testing.T) {
	_, err := GenerateToken(nil, Identity{AccountID: "a"}, time.Hour)
	assert.Error(t, err)
	_, err = GenerateToken(secret, Identity{}, time.Hour)
	assert.Error(t, err)
}
