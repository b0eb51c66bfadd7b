package apiclient

import (
	"context"
	"net/http"
)

func (c *Client) ShareWithUser(ctx context.Context, req FileSharingWithUserRequest) (*SharedFileWithUserDto, error) {
	return JSON[*SharedFileWithUserDto](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   pathSharedWithUser,
		Body:   req,
	})
}

// ShareWithUserByEmail looks the recipient up by email and shares fileID
// with them.
func (c *Client) ShareWithUserByEmail(ctx context.Context, fileID, email string, perm Permission) (*SharedFileWithUserDto, error) {
	user, err := c.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoContent
	}
	return c.ShareWithUser(ctx, FileSharingWithUserRequest{
		FileID:     fileID,
		UserID:     user.ID,
		Permission: perm,
	})
}

func (c *Client) ShareWithGroup(ctx context.Context, req FileSharingWithGroupRequest) (*SharedFileWithGroupDto, error) {
	return JSON[*SharedFileWithGroupDto](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   pathSharedWithGroup,
		Body:   req,
	})
}

// ListSharedWithMe returns files other users shared with the current user.
func (c *Client) ListSharedWithMe(ctx context.Context) ([]SharedFileWithUserDto, error) {
	return JSON[[]SharedFileWithUserDto](ctx, c, &Request{Path: pathSharedWithUser})
}

// ListSharedWithMyGroups returns files shared with any group of the current
// user.
func (c *Client) ListSharedWithMyGroups(ctx context.Context) ([]SharedFileWithGroupDto, error) {
	return JSON[[]SharedFileWithGroupDto](ctx, c, &Request{Path: pathSharedWithGroup})
}

func (c *Client) ListSharedWithUser(ctx context.Context, userID string) ([]SharedFileWithUserDto, error) {
	return JSON[[]SharedFileWithUserDto](ctx, c, &Request{Path: join(pathSharedWithUser, userID)})
}

func (c *Client) ListSharedWithGroup(ctx context.Context, groupID string) ([]SharedFileWithGroupDto, error) {
	return JSON[[]SharedFileWithGroupDto](ctx, c, &Request{Path: join(pathSharedWithGroup, groupID)})
}

func (c *Client) UnshareWithUser(ctx context.Context, userID, fileID string) error {
	return Exec(ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   join(pathSharedWithUser, userID, "file", fileID),
	})
}

func (c *Client) UnshareWithGroup(ctx context.Context, groupID, fileID string) error {
	return Exec(ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   join(pathSharedWithGroup, groupID, "file", fileID),
	})
}
