// Package auth provides the pluggable session-handshake authentication
// strategy. The core only needs a Verifier; JWT is the one concrete
// strategy wired by this repository.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthDisabled is returned when a JWTService has no secret configured.
var ErrAuthDisabled = errors.New("auth: disabled")

// ErrInvalidToken is returned when a token fails parsing or validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier authenticates a connection handshake and yields the sessionId
// to use for it. The gateway falls back to the transport's connection id
// when no Verifier is configured, per the session handshake contract.
type Verifier interface {
	Verify(token string) (sessionID string, err error)
}

// JWTService signs and verifies handshake tokens carrying a session id.
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService builds a JWT helper with the given secret and expiry. A
// zero expiry issues tokens with no expiration; a negative expiry issues
// tokens that are already expired.
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

// Claims is the registered-claims envelope; Subject carries the sessionId.
type Claims struct {
	jwt.RegisteredClaims
}

// Generate issues a signed token binding sessionID as the subject.
func (s *JWTService) Generate(sessionID string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id required")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sessionID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if s.expiry != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(s.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify implements Verifier.
func (s *JWTService) Verify(token string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
