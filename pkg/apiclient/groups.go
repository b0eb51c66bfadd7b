package apiclient

import (
	"context"
	"net/http"
)

func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (*GroupDto, error) {
	return JSON[*GroupDto](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   pathGroups,
		Body:   req,
	})
}

// ListMyGroups returns the groups the current user belongs to.
func (c *Client) ListMyGroups(ctx context.Context) ([]GroupDto, error) {
	return JSON[[]GroupDto](ctx, c, &Request{Path: pathMyGroups})
}

func (c *Client) GetGroup(ctx context.Context, id string) (*GroupDto, error) {
	return JSON[*GroupDto](ctx, c, &Request{Path: join(pathGroups, id)})
}

func (c *Client) UpdateGroup(ctx context.Context, req GroupUpdateRequest) (*GroupDto, error) {
	return JSON[*GroupDto](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   join(pathGroups, req.ID),
		Body:   req,
	})
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return Exec(ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   join(pathGroups, id),
	})
}

func (c *Client) AddUsersToGroup(ctx context.Context, groupID string, userIDs []string) (*GroupDto, error) {
	return JSON[*GroupDto](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   join(pathGroups, groupID, "add-users"),
		Body:   nonNil(userIDs),
	})
}

func (c *Client) RemoveUsersFromGroup(ctx context.Context, groupID string, userIDs []string) (*GroupDto, error) {
	return JSON[*GroupDto](ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   join(pathGroups, groupID, "remove-users"),
		Body:   nonNil(userIDs),
	})
}

// nonNil keeps an empty list encoded as [] rather than null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ============================================================================
// Group views
// ============================================================================

// PartitionGroups splits groups into those userID administers (ADMIN or
// FOUNDER) and those userID merely belongs to. Order is preserved.
func PartitionGroups(userID string, groups []GroupDto) (owned, joined []GroupDto) {
	for _, g := range groups {
		if administers(userID, g) {
			owned = append(owned, g)
		} else {
			joined = append(joined, g)
		}
	}
	return owned, joined
}

func administers(userID string, g GroupDto) bool {
	for _, ur := range g.UserRoles {
		if ur.User == nil || ur.User.ID != userID {
			continue
		}
		if ur.Role == GroupRoleAdmin || ur.Role == GroupRoleFounder {
			return true
		}
	}
	return false
}

// GroupFiles returns the files shared with g, skipping duplicates.
func GroupFiles(g GroupDto) []FileDto {
	seen := make(map[string]struct{}, len(g.SharedFiles))
	files := make([]FileDto, 0, len(g.SharedFiles))
	for _, sf := range g.SharedFiles {
		if _, ok := seen[sf.File.ID]; ok {
			continue
		}
		seen[sf.File.ID] = struct{}{}
		files = append(files, sf.File)
	}
	return files
}
