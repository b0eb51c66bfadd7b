// Package credstore persists the access/refresh token pair between
// invocations. Drivers: Memory for tests, File for a single YAML document,
// SQLite for multiple named profiles.
package credstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("credstore: not found")

// TokenPair is the credential pair issued by the backend. Either field may be
// empty; a pair with no refresh token cannot be renewed.
type TokenPair struct {
	AccessToken  string `yaml:"access_token" json:"accessToken"`
	RefreshToken string `yaml:"refresh_token" json:"refreshToken"`
}

// IsZero reports whether neither token is set.
func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Store holds at most one TokenPair.
type Store interface {
	// Load returns the stored pair or ErrNotFound when logged out.
	Load(ctx context.Context) (TokenPair, error)

	// Save overwrites the stored pair.
	Save(ctx context.Context, pair TokenPair) error

	// Clear removes the pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// LoadOrEmpty is Load with ErrNotFound mapped to an empty pair.
func LoadOrEmpty(ctx context.Context, s Store) (TokenPair, error) {
	pair, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, nil
	}
	return pair, err
}
