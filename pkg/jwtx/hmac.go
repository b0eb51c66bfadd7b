package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer turns claims into a compact JWS.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier validates a compact JWS and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a shared secret.
type HS256 struct {
	key    []byte
	issuer string

	// Now is the clock used for expiry checks. time.Now when nil.
	Now func() time.Time
}

// NewHS256 returns an HS256 signer/verifier. An empty issuer disables the
// issuer check on Verify.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwtx: HS256 secret must be at least 32 bytes")
	}
	return &HS256{key: secret, issuer: issuer}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (h *HS256) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
}

// Verify checks signature, issuer and expiry. An expired but otherwise valid
// token fails with ErrExpired so callers can tell it apart from forgery.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{h.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return Claims{}, ErrAlgMismatch
	case err != nil:
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	case !token.Valid:
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if err := claims.ValidateExpiryAt(now().UTC(), 0); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
