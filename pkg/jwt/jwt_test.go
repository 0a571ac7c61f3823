package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(501, 7, "secret", 24)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(501), claims.UserId)
	assert.Equal(t, int64(7), claims.TenantId)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(501, 7, "secret", 24)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", "secret")
	assert.Error(t, err)
}
