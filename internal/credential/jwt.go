// Package credential implements JWT minting and the per-device
// credential-refresh scheduler (spec.md §4.3), adopting
// github.com/golang-jwt/jwt/v4 from the wider example pack since the
// teacher repo carries no JWT dependency of its own.
package credential

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MintJWT signs a short-lived token with key (RS256), claims
// {iat: now, exp: now + ttl, aud: audience} per spec.md §4.3.
func MintJWT(key *rsa.PrivateKey, audience string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Audience:  jwt.ClaimStrings{audience},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}

// RefreshSlack returns the duration before expiry at which the refresh
// scheduler should fire: refresh_slack, capped at jwtExpiration - 1h
// per spec.md §3's Credential invariant.
func RefreshSlack(jwtExpiration, requestedSlack time.Duration) time.Duration {
	maxSlack := jwtExpiration - time.Hour
	if maxSlack <= 0 {
		// Expirations under an hour leave no slack budget; refresh
		// halfway through the token's life instead.
		return jwtExpiration / 2
	}
	if requestedSlack > maxSlack {
		return maxSlack
	}
	if requestedSlack <= 0 {
		return maxSlack
	}
	return requestedSlack
}
