package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/platform/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "invostock", AccessTokenTTL: time.Hour}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testConfig())

	token, err := svc.GenerateAccessToken(42, "user", "ana@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_RejectsForeignSecret(t *testing.T) {
	token, err := NewTokenService(testConfig()).GenerateAccessToken(1, "user", "a@b.hr")
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "another-secret"
	_, err = NewTokenService(other).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc := NewTokenService(cfg)

	token, err := svc.GenerateAccessToken(1, "user", "a@b.hr")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = ""
	_, err := NewTokenService(cfg).GenerateAccessToken(1, "user", "a@b.hr")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("lozinka123")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "lozinka123"))
	assert.False(t, CheckPassword(hash, "kriva"))
}
