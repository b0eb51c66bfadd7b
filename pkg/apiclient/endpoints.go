package apiclient

import "net/url"

const (
	pathAuthenticate = "/auth/authenticate"
	pathRegister     = "/auth/register"
	pathRefresh      = "/auth/refresh"

	pathUsers       = "/users"
	pathCurrentUser = "/users/me"

	pathGroups   = "/groups"
	pathMyGroups = "/groups/user"

	pathFiles   = "/files"
	pathMyFiles = "/files/user"

	pathSharedWithUser  = "/shared-files/user"
	pathSharedWithGroup = "/shared-files/group"

	pathHealth = "/actuator/health"
)

// join appends escaped path segments to base.
func join(base string, segments ...string) string {
	for _, s := range segments {
		base += "/" + url.PathEscape(s)
	}
	return base
}
