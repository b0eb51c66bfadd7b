package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// maxErrorBody caps how much of a non-2xx body is read.
const maxErrorBody = 1 << 20

// Do sends r with the stored access token and decodes a 2xx response with
// dec. When the backend answers with the expired-token message the client
// refreshes once, saves the new pair and retries once with the new access
// token. A failed retry is never refreshed again.
func Do[T any](ctx context.Context, c *Client, r *Request, dec Decoder[T]) (T, error) {
	var zero T

	reqID := idx.New().String()
	ctx = slogx.WithRequestID(slogx.WithContext(ctx, c.logger), reqID)
	log := slogx.FromContext(ctx)

	pair, err := credstore.LoadOrEmpty(ctx, c.store)
	if err != nil {
		return zero, fmt.Errorf("failed to load credentials: %w", err)
	}

	resp, err := c.send(ctx, r, pair.AccessToken, reqID)
	if err != nil {
		return zero, err
	}
	if isSuccess(resp.StatusCode) {
		return decodeWith(resp, dec)
	}

	body := drain(resp)
	msg := parseMessage(body, MessageAPIError)
	if msg != ExpiredTokenMessage {
		return zero, &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Message: msg}
	}

	log.InfoContext(ctx, "access_token_expired",
		"method", r.method(),
		"path", r.Path,
		"token_fp", cryptox.ShortFingerprint(pair.AccessToken),
	)

	fresh, err := c.refreshExpired(ctx, pair, resp.StatusCode)
	if err != nil {
		return zero, err
	}

	resp, err = c.send(ctx, r, fresh.AccessToken, reqID)
	if err != nil {
		return zero, err
	}
	if isSuccess(resp.StatusCode) {
		return decodeWith(resp, dec)
	}

	body = drain(resp)
	retryErr := apiError(KindRetryFailed, resp, body, MessageRetryError)
	log.WarnContext(ctx, "retry_failed",
		"method", r.method(),
		"path", r.Path,
		"status", resp.StatusCode,
		"message", retryErr.Message,
	)
	return zero, retryErr
}

// JSON sends r and decodes a JSON response. A 204 yields the zero value.
func JSON[T any](ctx context.Context, c *Client, r *Request) (T, error) {
	return Do(ctx, c, r, JSONDecoder[T]())
}

// Exec sends r and ignores a 2xx body.
func Exec(ctx context.Context, c *Client, r *Request) error {
	_, err := Do(ctx, c, r, DiscardDecoder())
	return err
}

// Multipart sends r.Form as multipart/form-data and decodes a JSON response.
func Multipart[T any](ctx context.Context, c *Client, r *Request) (T, error) {
	if r.Form == nil {
		var zero T
		return zero, errors.New("multipart request has no form")
	}
	return Do(ctx, c, r, JSONDecoder[T]())
}

// FetchBlob sends r and returns the raw body.
func FetchBlob(ctx context.Context, c *Client, r *Request) (*Blob, error) {
	return Do(ctx, c, r, BlobDecoder())
}

// Stream sends r and copies a 2xx body into w. Nothing is written to w for a
// failed attempt.
func Stream(ctx context.Context, c *Client, r *Request, w io.Writer) (*Download, error) {
	return Do(ctx, c, r, WriterDecoder(w))
}

// ============================================================================
// Helpers
// ============================================================================

// send performs one attempt.
func (c *Client) send(ctx context.Context, r *Request, accessToken, requestID string) (*http.Response, error) {
	req, err := c.newHTTPRequest(ctx, r, accessToken, requestID)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "failed to create request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "failed to send request", Err: err}
	}
	return resp, nil
}

func decodeWith[T any](resp *http.Response, dec Decoder[T]) (T, error) {
	defer resp.Body.Close()

	out, err := dec.Decode(resp)
	if err != nil {
		var zero T
		return zero, &Error{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response",
			Err:        err,
		}
	}
	return out, nil
}

// drain reads and closes a non-2xx body.
func drain(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return body
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
