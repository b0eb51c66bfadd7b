package fakebackend

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.writeUser(w, r, currentUserID(r))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.writeUser(w, r, r.PathValue("id"))
}

func (s *Server) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	u, ok := s.state.userByEmail(r.PathValue("email"))
	if !ok {
		writeError(w, r, errUserNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.userDto(u))
}

func (s *Server) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	u, ok := s.state.users[id]
	if !ok {
		writeError(w, r, errUserNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.userDto(u))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req apiclient.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "Password must not be empty")
		return
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.updateUser(w, r, func(u *user) error {
		u.passwordHash = hash
		return nil
	})
}

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req apiclient.UpdateEmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if !strings.Contains(email, "@") {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid email")
		return
	}

	s.updateUser(w, r, func(u *user) error {
		if other, taken := s.state.userByEmail(email); taken && other.id != u.id {
			return fail(http.StatusConflict, "Email already exists")
		}
		u.email = email
		return nil
	})
}

// updateUser applies fn to the user in the path. Only the user or an admin
// may change an account.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, fn func(*user) error) {
	id, caller := r.PathValue("id"), currentUserID(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok {
		writeError(w, r, errUserNotFound)
		return
	}
	if caller != id && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}
	if err := fn(u); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.userDto(u))
}
