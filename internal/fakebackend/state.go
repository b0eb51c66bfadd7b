package fakebackend

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/google/uuid"
)

type user struct {
	id           string
	username     string
	email        string
	passwordHash string
	roles        []apiclient.Role
}

type membership struct {
	id       string
	userID   string
	role     apiclient.GroupRole
	joinedAt time.Time
}

type group struct {
	id          string
	name        string
	description string
	members     []membership
}

func (g *group) member(userID string) (membership, bool) {
	for _, m := range g.members {
		if m.userID == userID {
			return m, true
		}
	}
	return membership{}, false
}

func (g *group) administeredBy(userID string) bool {
	m, ok := g.member(userID)
	return ok && (m.role == apiclient.GroupRoleAdmin || m.role == apiclient.GroupRoleFounder)
}

type file struct {
	id          string
	ownerID     string
	filename    string
	contentType string
	data        []byte
	version     int32
	createdAt   time.Time
	updatedAt   time.Time
}

type userShare struct {
	id         string
	fileID     string
	userID     string
	permission apiclient.Permission
	sharedAt   time.Time
}

type groupShare struct {
	id         string
	fileID     string
	groupID    string
	permission apiclient.Permission
	sharedAt   time.Time
}

type refreshSession struct {
	userID    string
	expiresAt time.Time
}

// state is the whole backend model guarded by one lock.
type state struct {
	mu sync.RWMutex

	users       map[string]*user
	groups      map[string]*group
	files       map[string]*file
	userShares  []userShare
	groupShares []groupShare

	// refresh sessions keyed by token fingerprint
	refresh map[string]refreshSession
}

func newState() *state {
	return &state{
		users:   make(map[string]*user),
		groups:  make(map[string]*group),
		files:   make(map[string]*file),
		refresh: make(map[string]refreshSession),
	}
}

func newID() string { return uuid.NewString() }

// ============================================================================
// Lookups (callers hold the lock)
// ============================================================================

func (s *state) userByName(username string) (*user, bool) {
	for _, u := range s.users {
		if u.username == username {
			return u, true
		}
	}
	return nil, false
}

func (s *state) userByEmail(email string) (*user, bool) {
	for _, u := range s.users {
		if u.email == email {
			return u, true
		}
	}
	return nil, false
}

func (s *state) isAdmin(userID string) bool {
	u, ok := s.users[userID]
	return ok && slices.Contains(u.roles, apiclient.RoleAdmin)
}

func (s *state) groupsOf(userID string) []*group {
	var out []*group
	for _, g := range s.groups {
		if _, ok := g.member(userID); ok {
			out = append(out, g)
		}
	}
	sortBy(out, func(g *group) string { return g.id })
	return out
}

// permission returns the strongest permission userID holds on f.
func (s *state) permission(userID string, f *file) (apiclient.Permission, bool) {
	if f.ownerID == userID {
		return apiclient.PermissionWrite, true
	}

	var (
		best  apiclient.Permission
		found bool
	)
	consider := func(p apiclient.Permission) {
		if !found || p == apiclient.PermissionWrite {
			best, found = p, true
		}
	}
	for _, sh := range s.userShares {
		if sh.fileID == f.id && sh.userID == userID {
			consider(sh.permission)
		}
	}
	for _, sh := range s.groupShares {
		if sh.fileID != f.id {
			continue
		}
		if g, ok := s.groups[sh.groupID]; ok {
			if _, member := g.member(userID); member {
				consider(sh.permission)
			}
		}
	}
	return best, found
}

func (s *state) canRead(userID string, f *file) bool {
	_, ok := s.permission(userID, f)
	return ok || s.isAdmin(userID)
}

func (s *state) canWrite(userID string, f *file) bool {
	p, ok := s.permission(userID, f)
	return (ok && p == apiclient.PermissionWrite) || s.isAdmin(userID)
}

func (s *state) deleteFile(id string) {
	delete(s.files, id)
	s.userShares = slices.DeleteFunc(s.userShares, func(sh userShare) bool { return sh.fileID == id })
	s.groupShares = slices.DeleteFunc(s.groupShares, func(sh groupShare) bool { return sh.fileID == id })
}

func (s *state) deleteGroup(id string) {
	delete(s.groups, id)
	s.groupShares = slices.DeleteFunc(s.groupShares, func(sh groupShare) bool { return sh.groupID == id })
}

func sortBy[T any](items []T, key func(T) string) {
	slices.SortFunc(items, func(a, b T) int {
		return strings.Compare(key(a), key(b))
	})
}
