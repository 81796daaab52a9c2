package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticatorVerify(t *testing.T) {
	hash, err := HashPassword("rahasia", bcrypt.MinCost)
	require.NoError(t, err)

	a, err := NewAuthenticator("operator", hash)
	require.NoError(t, err)

	require.NoError(t, a.Verify("operator", "rahasia"))
	require.NoError(t, a.Verify(" operator ", "rahasia"))
	require.ErrorIs(t, a.Verify("operator", "salah"), ErrInvalidCredentials)
	require.ErrorIs(t, a.Verify("admin", "rahasia"), ErrInvalidCredentials)
}

func TestNewAuthenticatorRejectsPlainPassword(t *testing.T) {
	_, err := NewAuthenticator("operator", "plaintext")
	require.Error(t, err)
	_, err = NewAuthenticator("", "$2a$04$abcdefghijklmnopqrstuuS0qG2m2d4nQ3d1L6y8A6nYkz9u2n0kS")
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	token, expires, err := svc.GenerateToken("operator")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "operator", claims.Username)
	require.Equal(t, "operator", claims.Subject)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	token, _, err := svc.GenerateToken("operator")
	require.NoError(t, err)

	_, err = NewTokenService("other", time.Minute).ValidateToken(token)
	require.Error(t, err)

	later := NewTokenService("secret", time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = later.ValidateToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestGenerateTokenRequiresUsername(t *testing.T) {
	_, _, err := NewTokenService("secret", 0).GenerateToken("")
	require.Error(t, err)
}
