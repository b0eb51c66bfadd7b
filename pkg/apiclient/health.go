package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// Health queries the backend health endpoint without credentials. A 503
// carrying a health document returns that document and no error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	_, resp, err := c.public(ctx, &Request{Path: pathHealth})
	if err != nil {
		return nil, err
	}

	body := drain(resp)
	if isSuccess(resp.StatusCode) || resp.StatusCode == http.StatusServiceUnavailable {
		var out HealthResponse
		if err := json.Unmarshal(body, &out); err == nil && out.Status != "" {
			return &out, nil
		} else if isSuccess(resp.StatusCode) {
			return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
		}
	}
	return nil, apiError(KindAPI, resp, body, MessageAPIError)
}
