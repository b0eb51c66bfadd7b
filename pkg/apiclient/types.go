package apiclient

import (
	"strings"
	"time"
)

// ============================================================================
// Enums
// ============================================================================

// Role is an account-wide role.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// GroupRole is a member's role inside a group.
type GroupRole string

const (
	GroupRoleMember  GroupRole = "MEMBER"
	GroupRoleAdmin   GroupRole = "ADMIN"
	GroupRoleFounder GroupRole = "FOUNDER"
)

// Permission granted on a shared file.
type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionWrite Permission = "WRITE"
)

// ParsePermission accepts "read"/"write" in any case.
func ParsePermission(s string) (Permission, bool) {
	switch Permission(strings.ToUpper(strings.TrimSpace(s))) {
	case PermissionRead:
		return PermissionRead, true
	case PermissionWrite:
		return PermissionWrite, true
	}
	return "", false
}

// Timestamp is a backend date-time. Both RFC 3339 and zone-less ISO 8601
// values are accepted; zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// ============================================================================
// Auth
// ============================================================================

// AuthenticationRequest is the login body.
type AuthenticationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthenticationResponse carries the token pair issued on login or refresh.
type AuthenticationResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenRefreshRequest is the refresh body.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserCreateRequest is the registration body.
type UserCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ============================================================================
// Users
// ============================================================================

type UserDto struct {
	ID          string                  `json:"id"`
	Username    string                  `json:"username"`
	Email       string                  `json:"email"`
	Roles       []Role                  `json:"roles,omitempty"`
	GroupRoles  []UserGroupRoleDto      `json:"groupRoles,omitempty"`
	SharedFiles []SharedFileWithUserDto `json:"sharedFiles,omitempty"`
}

type UserShortDto struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ChangePasswordRequest struct {
	Password string `json:"password"`
}

type UpdateEmailRequest struct {
	Email string `json:"email"`
}

// ============================================================================
// Groups
// ============================================================================

type GroupDto struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	UserRoles   []UserGroupRoleShortDto  `json:"userRoles,omitempty"`
	SharedFiles []SharedFileWithGroupDto `json:"sharedFiles,omitempty"`
}

type ShortGroupDto struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateGroupRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	OwnerID     string                   `json:"ownerId"`
	UserRoles   []CreateUserGroupRoleDto `json:"userRoles,omitempty"`
}

type CreateUserGroupRoleDto struct {
	ID   string    `json:"id,omitempty"`
	Role GroupRole `json:"role,omitempty"`
}

type GroupUpdateRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UserGroupRoleDto struct {
	ID       string    `json:"id"`
	Group    GroupDto  `json:"group"`
	Role     GroupRole `json:"role"`
	JoinedAt Timestamp `json:"joinedAt"`
}

// UserGroupRoleShortDto is a membership as listed on a group. The backend
// includes the member so clients can tell which groups they administer.
type UserGroupRoleShortDto struct {
	ID       string        `json:"id"`
	User     *UserShortDto `json:"user,omitempty"`
	Role     GroupRole     `json:"role"`
	JoinedAt Timestamp     `json:"joinedAt"`
}

// ============================================================================
// Files
// ============================================================================

type FileDto struct {
	ID        string       `json:"id"`
	Owner     UserShortDto `json:"owner"`
	Filename  string       `json:"filename"`
	FileType  string       `json:"fileType"`
	Size      int64        `json:"size"`
	Version   int32        `json:"version"`
	CreatedAt Timestamp    `json:"createdAt"`
	UpdatedAt Timestamp    `json:"updatedAt"`
}

type FileSharingWithUserRequest struct {
	FileID     string     `json:"fileId"`
	UserID     string     `json:"userId"`
	Permission Permission `json:"permission"`
}

type SharedFileWithUserDto struct {
	ID         string       `json:"id"`
	File       FileDto      `json:"file"`
	SharedWith UserShortDto `json:"sharedWith"`
	Permission Permission   `json:"permission"`
	SharedAt   Timestamp    `json:"sharedAt"`
}

type FileSharingWithGroupRequest struct {
	FileID     string     `json:"fileId"`
	GroupID    string     `json:"groupId"`
	Permission Permission `json:"permission"`
}

type SharedFileWithGroupDto struct {
	ID         string         `json:"id"`
	File       FileDto        `json:"file"`
	Group      *ShortGroupDto `json:"group,omitempty"`
	Permission Permission     `json:"permission"`
	SharedAt   Timestamp      `json:"sharedAt"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is the actuator health document.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]HealthComponent `json:"components,omitempty"`
}

type HealthComponent struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Up reports whether the backend declares itself healthy.
func (h *HealthResponse) Up() bool {
	return h != nil && h.Status == "UP"
}
