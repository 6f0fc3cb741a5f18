package credential

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintJWTClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	tokenStr, err := MintJWT(key, "project-123", time.Hour, now)
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, jwt.ClaimStrings{"project-123"}, claims.Audience)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestRefreshSlackCapsAtExpirationMinusOneHour(t *testing.T) {
	slack := RefreshSlack(2*time.Hour, 90*time.Minute)
	assert.Equal(t, time.Hour, slack)
}

func TestRefreshSlackUsesRequestedWhenUnderCap(t *testing.T) {
	slack := RefreshSlack(6*time.Hour, 30*time.Minute)
	assert.Equal(t, 30*time.Minute, slack)
}

func TestRefreshSlackShortExpirationHalvesIt(t *testing.T) {
	slack := RefreshSlack(30*time.Minute, 0)
	assert.Equal(t, 15*time.Minute, slack)
}
