package fakebackend

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req apiclient.AuthenticationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s.state.mu.RLock()
	u, ok := s.state.userByName(req.Username)
	var hash string
	if ok {
		hash = u.passwordHash
	}
	s.state.mu.RUnlock()

	if !ok || cryptox.VerifyPassword(req.Password, hash) != nil {
		httpx.WriteMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}

	s.state.mu.Lock()
	pair, err := s.issuePair(u)
	s.state.mu.Unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user authenticated", "user_id", u.id)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req apiclient.UserCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.register(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.state.mu.RLock()
	dto := s.state.userDto(u)
	s.state.mu.RUnlock()

	httpx.WriteJSON(w, http.StatusCreated, dto)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req apiclient.TokenRefreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.rotate(req.RefreshToken)
	switch {
	case errors.Is(err, errInvalidRefresh):
		httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	case err != nil:
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Debug("token refreshed",
		"refresh_fp", cryptox.ShortFingerprint(req.RefreshToken),
	)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
