package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// Authenticate logs in with username and password and saves the issued pair.
// A 400, 401 or 403 answer is reported as "Invalid credentials"; anything
// else keeps the backend's message.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*AuthenticationResponse, error) {
	ctx, resp, err := c.public(ctx, &Request{
		Method: http.MethodPost,
		Path:   pathAuthenticate,
		Body:   AuthenticationRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		body := drain(resp)
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return nil, &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Message: MessageInvalidLogin}
		}
		return nil, apiError(KindAPI, resp, body, MessageAPIError)
	}

	out, err := decodeWith(resp, JSONDecoder[AuthenticationResponse]())
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(ctx, credstore.TokenPair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	slogx.FromContext(ctx).InfoContext(ctx, "logged_in",
		"username", username,
		"refresh_fp", cryptox.ShortFingerprint(out.RefreshToken),
	)
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req UserCreateRequest) error {
	_, resp, err := c.public(ctx, &Request{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body:   req,
	})
	if err != nil {
		return err
	}

	body := drain(resp)
	if !isSuccess(resp.StatusCode) {
		return apiError(KindAPI, resp, body, MessageRegisterFailure)
	}
	return nil
}

// Refresh exchanges refreshToken for a new pair. The store is not touched;
// the executor saves the result itself.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (credstore.TokenPair, error) {
	_, resp, err := c.public(ctx, &Request{
		Method: http.MethodPost,
		Path:   pathRefresh,
		Body:   TokenRefreshRequest{RefreshToken: refreshToken},
	})
	if err != nil {
		return credstore.TokenPair{}, err
	}

	if !isSuccess(resp.StatusCode) {
		_ = drain(resp)
		return credstore.TokenPair{}, &Error{
			Kind:       KindRefreshFailed,
			StatusCode: resp.StatusCode,
			Message:    MessageRefreshFailed,
		}
	}

	defer resp.Body.Close()
	var out AuthenticationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&out); err != nil {
		return credstore.TokenPair{}, &Error{
			Kind:       KindRefreshFailed,
			StatusCode: resp.StatusCode,
			Message:    MessageRefreshFailed,
			Err:        err,
		}
	}
	if out.AccessToken == "" {
		return credstore.TokenPair{}, &Error{
			Kind:       KindRefreshFailed,
			StatusCode: resp.StatusCode,
			Message:    MessageRefreshFailed,
			Err:        errors.New("refresh response has no access token"),
		}
	}

	return credstore.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// Logout forgets the stored pair. The backend keeps no session to end.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Session returns the stored pair, or credstore.ErrNotFound when logged out.
func (c *Client) Session(ctx context.Context) (credstore.TokenPair, error) {
	return c.store.Load(ctx)
}

// LoggedIn reports whether an access token is stored.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	pair, err := credstore.LoadOrEmpty(ctx, c.store)
	if err != nil {
		return false, err
	}
	return pair.AccessToken != "", nil
}

// public sends r without credentials. The returned context carries the
// request-scoped logger.
func (c *Client) public(ctx context.Context, r *Request) (context.Context, *http.Response, error) {
	reqID := idx.New().String()
	ctx = slogx.WithRequestID(slogx.WithContext(ctx, c.logger), reqID)

	resp, err := c.send(ctx, r, "", reqID)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, resp, nil
}
