package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes the claims of token without verifying its signature. The
// client uses it for display only; the backend remains the authority.
func Inspect(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}
