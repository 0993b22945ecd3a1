// Package token mints and validates the signed bearer tokens that carry a
// principal between requests. Tokens are self-contained and never stored
// server side; they simply expire.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the only failure Validate reports. Malformed input,
// a bad signature, an unexpected algorithm, and expiry all collapse into it
// so token probing learns nothing from the error.
var ErrInvalidToken = errors.New("token: invalid token")

// Codec signs and verifies bearer tokens with an HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a Codec. The now function may be nil, in which case
// time.Now is used; tests inject their own clock.
func NewCodec(secret string, ttl time.Duration, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: now}
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint issues a signed token asserting the given subject until now+TTL.
func (c *Codec) Mint(subject uuid.UUID) (string, time.Time, error) {
	now := c.now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies the signature and expiry of raw and returns the subject.
// Every failure is ErrInvalidToken; callers never learn which check failed.
func (c *Codec) Validate(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return subject, nil
}
