package apiclient

import (
	"context"
	"net/http"
)

func (c *Client) GetUser(ctx context.Context, id string) (*UserDto, error) {
	return JSON[*UserDto](ctx, c, &Request{Path: join(pathUsers, id)})
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserDto, error) {
	return JSON[*UserDto](ctx, c, &Request{Path: join(pathUsers, "email", email)})
}

// CurrentUser returns the account owning the stored access token.
func (c *Client) CurrentUser(ctx context.Context) (*UserDto, error) {
	return JSON[*UserDto](ctx, c, &Request{Path: pathCurrentUser})
}

func (c *Client) ChangePassword(ctx context.Context, userID, password string) (*UserDto, error) {
	return JSON[*UserDto](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   join(pathUsers, userID, "password"),
		Body:   ChangePasswordRequest{Password: password},
	})
}

func (c *Client) UpdateEmail(ctx context.Context, userID, email string) (*UserDto, error) {
	return JSON[*UserDto](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   join(pathUsers, userID, "email"),
		Body:   UpdateEmailRequest{Email: email},
	})
}
