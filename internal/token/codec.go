// Package token signs and verifies the time-limited tokens embedded in
// confirmation and password-reset links. A token is a capability: it
// carries nothing but an email address and an expiry, and nothing revokes
// it before the expiry passes.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lunchmates/lunchmates/internal/shared"
)

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Codec encodes and decodes signed, expiring email tokens.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given process-wide secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode signs the email into an opaque token valid for ttl.
func (c *Codec) Encode(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the embedded email.
// Every failure mode (bad signature, expired, malformed, missing email)
// comes back as shared.ErrInvalidToken so callers can only branch on
// valid-or-not, never on why.
func (c *Codec) Decode(tokenString string) (string, error) {
	var cl claims
	tok, err := jwt.ParseWithClaims(tokenString, &cl, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrInvalidToken, err)
	}
	if !tok.Valid || cl.Email == "" {
		return "", shared.ErrInvalidToken
	}
	return cl.Email, nil
}
