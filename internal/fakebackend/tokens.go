package fakebackend

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

var errInvalidRefresh = errors.New("invalid refresh token")

// issuePair mints an access token and a fresh refresh token for u. The caller
// holds the write lock.
func (s *Server) issuePair(u *user) (apiclient.AuthenticationResponse, error) {
	now := s.now()

	roles := make([]string, len(u.roles))
	for i, r := range u.roles {
		roles[i] = string(r)
	}

	access, err := s.signer.Sign(jwtx.NewAccessClaims(u.id, u.username, roles, s.opts.Issuer, s.opts.AccessTTL, now))
	if err != nil {
		return apiclient.AuthenticationResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return apiclient.AuthenticationResponse{}, err
	}
	s.state.refresh[cryptox.FingerprintToken(refresh)] = refreshSession{
		userID:    u.id,
		expiresAt: now.Add(s.opts.RefreshTTL),
	}

	return apiclient.AuthenticationResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// rotate consumes refreshToken and issues a new pair. Each refresh token is
// single use unless Options.ReuseRefreshTokens is set.
func (s *Server) rotate(refreshToken string) (apiclient.AuthenticationResponse, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	fp := cryptox.FingerprintToken(refreshToken)
	sess, ok := s.state.refresh[fp]
	if !ok || !s.now().Before(sess.expiresAt) {
		return apiclient.AuthenticationResponse{}, errInvalidRefresh
	}

	u, ok := s.state.users[sess.userID]
	if !ok {
		delete(s.state.refresh, fp)
		return apiclient.AuthenticationResponse{}, errInvalidRefresh
	}

	if !s.opts.ReuseRefreshTokens {
		delete(s.state.refresh, fp)
	}
	return s.issuePair(u)
}

// deleteExpiredRefreshTokens drops sessions past their expiry and reports how
// many were removed.
func (s *Server) deleteExpiredRefreshTokens() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	now := s.now()
	n := 0
	for fp, sess := range s.state.refresh {
		if !now.Before(sess.expiresAt) {
			delete(s.state.refresh, fp)
			n++
		}
	}
	return n
}

// activeRefreshTokens counts live refresh sessions.
func (s *Server) activeRefreshTokens() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return len(s.state.refresh)
}

// ============================================================================
// Clock
// ============================================================================

func (s *Server) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return time.Now().UTC().Add(s.offset)
}

// Advance moves the backend clock forward by d. Access tokens issued before
// the jump may now be expired.
func (s *Server) Advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.offset += d
}

// ExpireAccessTokens advances the clock just past the access token lifetime.
// Refresh tokens stay valid as long as RefreshTTL exceeds AccessTTL.
func (s *Server) ExpireAccessTokens() {
	s.Advance(s.opts.AccessTTL + time.Second)
}
