package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, time.Hour)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateTokenWithExpiry(t *testing.T) {
	svc := NewTokenService("test-secret")
	userID := uuid.New()

	before := time.Now()
	token, err := svc.GenerateToken(userID, time.Hour)
	require.NoError(t, err)

	got, expiresAt, err := svc.ValidateTokenWithExpiry(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.WithinDuration(t, before.Add(time.Hour), expiresAt, 5*time.Second)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateToken(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMalformedTokenRejected(t *testing.T) {
	svc := NewTokenService("test-secret")

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecretRejected(t *testing.T) {
	userID := uuid.New()
	token, err := NewTokenService("secret-a").GenerateToken(userID, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
