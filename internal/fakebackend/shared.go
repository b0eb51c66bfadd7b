package fakebackend

import (
	"net/http"
	"slices"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

func validPermission(p apiclient.Permission) bool {
	return p == apiclient.PermissionRead || p == apiclient.PermissionWrite
}

func (s *Server) handleShareWithUser(w http.ResponseWriter, r *http.Request) {
	var req apiclient.FileSharingWithUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validPermission(req.Permission) {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid permission")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f, err := s.ownedFile(r, req.FileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, ok := s.state.users[req.UserID]; !ok {
		writeError(w, r, errUserNotFound)
		return
	}
	if req.UserID == f.ownerID {
		httpx.WriteMessage(w, http.StatusBadRequest, "Cannot share a file with its owner")
		return
	}

	// Sharing again updates the permission.
	for i, sh := range s.state.userShares {
		if sh.fileID == f.id && sh.userID == req.UserID {
			s.state.userShares[i].permission = req.Permission
			httpx.WriteJSON(w, http.StatusOK, s.state.userShareDto(s.state.userShares[i]))
			return
		}
	}

	sh := userShare{id: newID(), fileID: f.id, userID: req.UserID, permission: req.Permission, sharedAt: s.now()}
	s.state.userShares = append(s.state.userShares, sh)
	httpx.WriteJSON(w, http.StatusCreated, s.state.userShareDto(sh))
}

func (s *Server) handleShareWithGroup(w http.ResponseWriter, r *http.Request) {
	var req apiclient.FileSharingWithGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validPermission(req.Permission) {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid permission")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f, err := s.ownedFile(r, req.FileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.visibleGroup(r, req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	for i, sh := range s.state.groupShares {
		if sh.fileID == f.id && sh.groupID == g.id {
			s.state.groupShares[i].permission = req.Permission
			httpx.WriteJSON(w, http.StatusOK, s.state.groupShareDto(s.state.groupShares[i]))
			return
		}
	}

	sh := groupShare{id: newID(), fileID: f.id, groupID: g.id, permission: req.Permission, sharedAt: s.now()}
	s.state.groupShares = append(s.state.groupShares, sh)
	httpx.WriteJSON(w, http.StatusCreated, s.state.groupShareDto(sh))
}

func (s *Server) handleSharedWithMe(w http.ResponseWriter, r *http.Request) {
	s.writeUserShares(w, currentUserID(r))
}

func (s *Server) handleSharedWithUser(w http.ResponseWriter, r *http.Request) {
	target, caller := r.PathValue("userId"), currentUserID(r)

	s.state.mu.RLock()
	allowed := caller == target || s.state.isAdmin(caller)
	_, exists := s.state.users[target]
	s.state.mu.RUnlock()

	switch {
	case !exists:
		writeError(w, r, errUserNotFound)
	case !allowed:
		writeError(w, r, errForbidden)
	default:
		s.writeUserShares(w, target)
	}
}

func (s *Server) writeUserShares(w http.ResponseWriter, userID string) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	out := []apiclient.SharedFileWithUserDto{}
	for _, sh := range s.state.userShares {
		if sh.userID == userID {
			out = append(out, s.state.userShareDto(sh))
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleSharedWithMyGroups(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	var ids []string
	for _, g := range s.state.groupsOf(currentUserID(r)) {
		ids = append(ids, g.id)
	}
	httpx.WriteJSON(w, http.StatusOK, s.groupShares(ids...))
}

func (s *Server) handleSharedWithGroup(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	g, err := s.visibleGroup(r, r.PathValue("groupId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.groupShares(g.id))
}

func (s *Server) groupShares(groupIDs ...string) []apiclient.SharedFileWithGroupDto {
	out := []apiclient.SharedFileWithGroupDto{}
	for _, sh := range s.state.groupShares {
		if slices.Contains(groupIDs, sh.groupID) {
			out = append(out, s.state.groupShareDto(sh))
		}
	}
	return out
}

func (s *Server) handleUnshareUser(w http.ResponseWriter, r *http.Request) {
	userID, fileID := r.PathValue("userId"), r.PathValue("fileId")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, err := s.ownedFile(r, fileID); err != nil {
		writeError(w, r, err)
		return
	}

	before := len(s.state.userShares)
	s.state.userShares = slices.DeleteFunc(s.state.userShares, func(sh userShare) bool {
		return sh.fileID == fileID && sh.userID == userID
	})
	if len(s.state.userShares) == before {
		httpx.WriteMessage(w, http.StatusNotFound, "Share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnshareGroup(w http.ResponseWriter, r *http.Request) {
	groupID, fileID := r.PathValue("groupId"), r.PathValue("fileId")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, err := s.ownedFile(r, fileID); err != nil {
		writeError(w, r, err)
		return
	}

	before := len(s.state.groupShares)
	s.state.groupShares = slices.DeleteFunc(s.state.groupShares, func(sh groupShare) bool {
		return sh.fileID == fileID && sh.groupID == groupID
	})
	if len(s.state.groupShares) == before {
		httpx.WriteMessage(w, http.StatusNotFound, "Share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedFile returns fileID when the caller owns it or is an admin. The caller
// holds the lock.
func (s *Server) ownedFile(r *http.Request, fileID string) (*file, error) {
	f, ok := s.state.files[fileID]
	if !ok {
		return nil, errFileNotFound
	}
	caller := currentUserID(r)
	if f.ownerID != caller && !s.state.isAdmin(caller) {
		return nil, errForbidden
	}
	return f, nil
}
