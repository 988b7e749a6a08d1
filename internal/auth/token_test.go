package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret", 1)

	signed, err := SignToken("user-1", "vendor")
	assert.NoError(t, err)

	userID, role, err := ParseToken(signed)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "vendor", role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	InitJWT("test-secret", 1)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	assert.NoError(t, err)

	_, _, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	InitJWT("test-secret", 1)

	stale := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"role":    "client",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := stale.SignedString([]byte("test-secret"))
	assert.NoError(t, err)

	_, _, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRequiresUserID(t *testing.T) {
	InitJWT("test-secret", 1)

	anon := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "client",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := anon.SignedString([]byte("test-secret"))
	assert.NoError(t, err)

	_, _, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
