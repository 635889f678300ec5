package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Claims carries the signed token payload: the principal id in the standard
// subject claim plus the principal's token version for revocation checks.
type Claims struct {
	TokenVersion int `json:"tv"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed session tokens. The signing
// secret and lifetime come from configuration, injected at construction.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a token bound to the given principal identity.
func (tm *TokenManager) Issue(id uuid.UUID, tokenVersion int) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Every failure mode (malformed, expired,
// bad signature) collapses into ErrUnauthenticated so callers cannot probe
// which check rejected the token.
func (tm *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, shared.ErrUnauthenticated
	}
	return claims, nil
}
