package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mikey/header-analyzer/internal/core"
)

// DefaultTTL is the lifetime of issued tokens when none is configured
const DefaultTTL = 7 * 24 * time.Hour

type claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 tokens
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer creates a token issuer. The secret must not be empty.
func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the principal
func (j *JWTIssuer) Issue(p core.Principal) (string, error) {
	now := j.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID:   p.UserID,
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	})
	signed, err := tok.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the encoded principal.
// Every failure is reported as core.ErrInvalidToken.
func (j *JWTIssuer) Verify(raw string) (core.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: %w", core.ErrInvalidToken, err)
	}
	if c.ID == "" {
		return core.Principal{}, fmt.Errorf("%w: missing user id", core.ErrInvalidToken)
	}

	role := core.Role(c.Role)
	if role != core.RoleAdmin {
		role = core.RoleUser
	}
	return core.Principal{UserID: c.ID, Role: role}, nil
}
