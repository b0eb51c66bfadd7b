// Package fakebackend is an in-memory implementation of the ShareBox REST
// API. It backs the client tests and the development server.
package fakebackend

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// DefaultIssuer is the token issuer when none is configured.
const DefaultIssuer = "sharebox-fake"

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	// Secret signs access tokens (HS256, at least 32 bytes). Random when empty.
	Secret []byte
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// BasePath prefixes every route, e.g. "/api/v1".
	BasePath string

	// ReuseRefreshTokens keeps refresh tokens valid after use.
	ReuseRefreshTokens bool

	// AuthRateLimit limits the auth endpoints per client IP. Disabled when zero.
	AuthRateLimit httpx.RateLimitConfig

	Logger *slog.Logger
}

// Server is the fake backend. It is an http.Handler.
type Server struct {
	opts    Options
	state   *state
	signer  *jwtx.HS256
	handler http.Handler

	healthy atomic.Bool

	clockMu sync.Mutex
	offset  time.Duration

	hitsMu sync.Mutex
	hits   map[string]int
}

// New builds a Server with no users.
func New(opts Options) (*Server, error) {
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = slogx.Discard()
	}
	opts.BasePath = strings.TrimSuffix(opts.BasePath, "/")

	secret := opts.Secret
	if len(secret) == 0 {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		secret = []byte(token)
	}

	signer, err := jwtx.NewHS256(secret, opts.Issuer)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		state:  newState(),
		signer: signer,
		hits:   make(map[string]int),
	}
	signer.Now = s.now
	s.healthy.Store(true)
	s.handler = s.routes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Hits returns how often the route pattern was served, e.g.
// "POST /auth/refresh". BasePath is not part of the pattern.
func (s *Server) Hits(pattern string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[pattern]
}

// SetHealthy switches the health endpoint between UP and DOWN.
func (s *Server) SetHealthy(up bool) { s.healthy.Store(up) }

// CreateUser registers a user directly. admin adds the ADMIN role.
func (s *Server) CreateUser(username, email, password string, admin bool) (apiclient.UserDto, error) {
	u, err := s.register(username, email, password)
	if err != nil {
		return apiclient.UserDto{}, err
	}
	if admin {
		s.state.mu.Lock()
		u.roles = append(u.roles, apiclient.RoleAdmin)
		s.state.mu.Unlock()
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.userDto(u), nil
}

// register creates a USER account after validating uniqueness.
func (s *Server) register(username, email, password string) (*user, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fail(http.StatusBadRequest, "Username, email and password are required")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, taken := s.state.userByName(username); taken {
		return nil, fail(http.StatusConflict, "Username already exists")
	}
	if _, taken := s.state.userByEmail(email); taken {
		return nil, fail(http.StatusConflict, "Email already exists")
	}

	u := &user{
		id:           newID(),
		username:     username,
		email:        email,
		passwordHash: hash,
		roles:        []apiclient.Role{apiclient.RoleUser},
	}
	s.state.users[u.id] = u
	return u, nil
}

// ============================================================================
// Routing
// ============================================================================

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	authed := httpx.BearerAuth(s.signer)
	limited := httpx.RateLimitMiddleware(s.opts.AuthRateLimit, httpx.IPKeyExtractor)

	public := func(pattern string, h http.HandlerFunc, mws ...httpx.Middleware) {
		mux.Handle(pattern, s.count(pattern, httpx.Chain(h, mws...)))
	}
	secured := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.count(pattern, httpx.Chain(h, authed)))
	}

	// Auth
	public("POST /auth/authenticate", s.handleAuthenticate, limited)
	public("POST /auth/register", s.handleRegister, limited)
	public("POST /auth/refresh", s.handleRefresh, limited)

	// Users
	secured("GET /users/me", s.handleCurrentUser)
	secured("GET /users/{id}", s.handleGetUser)
	secured("GET /users/email/{email}", s.handleGetUserByEmail)
	secured("PUT /users/{id}/password", s.handleChangePassword)
	secured("PUT /users/{id}/email", s.handleUpdateEmail)

	// Groups
	secured("POST /groups", s.handleCreateGroup)
	secured("GET /groups/user", s.handleMyGroups)
	secured("GET /groups/{id}", s.handleGetGroup)
	secured("PUT /groups/{id}", s.handleUpdateGroup)
	secured("DELETE /groups/{id}", s.handleDeleteGroup)
	secured("POST /groups/{id}/add-users", s.handleAddUsers)
	secured("DELETE /groups/{id}/remove-users", s.handleRemoveUsers)

	// Files
	secured("POST /files", s.handleUploadFile)
	secured("GET /files/user", s.handleMyFiles)
	secured("GET /files/{id}", s.handleGetFile)
	secured("PUT /files/{id}", s.handleReplaceFile)
	secured("DELETE /files/{id}", s.handleDeleteFile)
	secured("GET /files/download/{id}", s.handleDownloadFile)
	secured("GET /files/user/{userId}/not-shared", s.handleFilesNotShared)
	secured("GET /files/all/{userId}", s.handleAllFiles)

	// Sharing
	secured("POST /shared-files/user", s.handleShareWithUser)
	secured("POST /shared-files/group", s.handleShareWithGroup)
	secured("GET /shared-files/user", s.handleSharedWithMe)
	secured("GET /shared-files/group", s.handleSharedWithMyGroups)
	secured("GET /shared-files/user/{userId}", s.handleSharedWithUser)
	secured("GET /shared-files/group/{groupId}", s.handleSharedWithGroup)
	secured("DELETE /shared-files/user/{userId}/file/{fileId}", s.handleUnshareUser)
	secured("DELETE /shared-files/group/{groupId}/file/{fileId}", s.handleUnshareGroup)

	// System
	public("GET /actuator/health", s.handleHealth)

	var h http.Handler = mux
	if s.opts.BasePath != "" {
		h = http.StripPrefix(s.opts.BasePath, mux)
	}
	return httpx.Chain(h, slogx.HTTPMiddleware(s.opts.Logger))
}

func (s *Server) count(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hitsMu.Lock()
		s.hits[pattern]++
		s.hitsMu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// currentUserID is the subject of the verified access token.
func currentUserID(r *http.Request) string {
	claims, _ := httpx.ClaimsFromContext(r.Context())
	return claims.Subject
}
