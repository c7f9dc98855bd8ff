package security

import (
	"testing"
	"time"

	"igress/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour, BcryptCost: 4}
	InitJWT()
}

func TestTokenRoundTrip(t *testing.T) {
	setup(t)

	signed, err := GenerateToken("user-1")
	require.NoError(t, err)

	tok, err := jwtauth.VerifyToken(TokenAuth, signed)
	require.NoError(t, err)
	claims, err := tok.AsMap(t.Context())
	require.NoError(t, err)

	id, err := GetUserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	_, hasRole := claims["role"]
	assert.False(t, hasRole)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	setup(t)

	signed, err := generateToken("user-1", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(TokenAuth, signed)
	require.ErrorIs(t, err, jwtauth.ErrExpired)
}

func TestPasswordHash(t *testing.T) {
	setup(t)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("pw", hash))
	assert.False(t, CheckPasswordHash("nope", hash))
}

func TestMissingUserIDClaim(t *testing.T) {
	_, err := GetUserIDFromClaims(map[string]interface{}{"sub": "x"})
	assert.Error(t, err)
}
