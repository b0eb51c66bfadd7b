package fakebackend

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req apiclient.CreateGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "Group name is required")
		return
	}

	caller := currentUserID(r)
	owner := req.OwnerID
	if owner == "" {
		owner = caller
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if owner != caller && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}
	if _, ok := s.state.users[owner]; !ok {
		writeError(w, r, errUserNotFound)
		return
	}

	now := s.now()
	g := &group{id: newID(), name: strings.TrimSpace(req.Name), description: req.Description}
	g.members = append(g.members, membership{id: newID(), userID: owner, role: apiclient.GroupRoleFounder, joinedAt: now})

	for _, ur := range req.UserRoles {
		if _, ok := s.state.users[ur.ID]; !ok {
			writeError(w, r, errUserNotFound)
			return
		}
		if _, dup := g.member(ur.ID); dup {
			continue
		}
		role := ur.Role
		if role == "" || role == apiclient.GroupRoleFounder {
			role = apiclient.GroupRoleMember
		}
		g.members = append(g.members, membership{id: newID(), userID: ur.ID, role: role, joinedAt: now})
	}

	s.state.groups[g.id] = g
	httpx.WriteJSON(w, http.StatusCreated, s.state.groupDto(g))
}

func (s *Server) handleMyGroups(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	groups := s.state.groupsOf(currentUserID(r))
	out := make([]apiclient.GroupDto, 0, len(groups))
	for _, g := range groups {
		out = append(out, s.state.groupDto(g))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	g, err := s.visibleGroup(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.groupDto(g))
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req apiclient.GroupUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s.withAdministeredGroup(w, r, func(g *group) error {
		if name := strings.TrimSpace(req.Name); name != "" {
			g.name = name
		}
		g.description = req.Description
		return nil
	})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, caller := r.PathValue("id"), currentUserID(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.state.groups[id]
	if !ok {
		writeError(w, r, errGroupNotFound)
		return
	}
	if m, member := g.member(caller); (!member || m.role != apiclient.GroupRoleFounder) && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}

	s.state.deleteGroup(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddUsers(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeBody(r, &ids); err != nil {
		writeError(w, r, err)
		return
	}

	s.withAdministeredGroup(w, r, func(g *group) error {
		for _, id := range ids {
			if _, ok := s.state.users[id]; !ok {
				return errUserNotFound
			}
		}
		now := s.now()
		for _, id := range ids {
			if _, ok := g.member(id); ok {
				continue
			}
			g.members = append(g.members, membership{id: newID(), userID: id, role: apiclient.GroupRoleMember, joinedAt: now})
		}
		return nil
	})
}

func (s *Server) handleRemoveUsers(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeBody(r, &ids); err != nil {
		writeError(w, r, err)
		return
	}

	s.withAdministeredGroup(w, r, func(g *group) error {
		for _, id := range ids {
			if m, ok := g.member(id); ok && m.role == apiclient.GroupRoleFounder {
				return fail(http.StatusBadRequest, "The founder cannot be removed")
			}
		}
		g.members = slices.DeleteFunc(g.members, func(m membership) bool {
			return slices.Contains(ids, m.userID)
		})
		return nil
	})
}

// visibleGroup returns the group if the caller belongs to it. The caller
// holds at least the read lock.
func (s *Server) visibleGroup(r *http.Request, id string) (*group, error) {
	g, ok := s.state.groups[id]
	if !ok {
		return nil, errGroupNotFound
	}
	caller := currentUserID(r)
	if _, member := g.member(caller); !member && !s.state.isAdmin(caller) {
		return nil, errForbidden
	}
	return g, nil
}

// withAdministeredGroup runs fn on the group in the path under the write lock
// when the caller is one of its ADMIN or FOUNDER members, then writes the
// updated group.
func (s *Server) withAdministeredGroup(w http.ResponseWriter, r *http.Request, fn func(*group) error) {
	id, caller := r.PathValue("id"), currentUserID(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.state.groups[id]
	if !ok {
		writeError(w, r, errGroupNotFound)
		return
	}
	if !g.administeredBy(caller) && !s.state.isAdmin(caller) {
		writeError(w, r, errForbidden)
		return
	}
	if err := fn(g); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.state.groupDto(g))
}
