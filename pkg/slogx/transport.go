package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outbound exchange with
// the logger found in the request context.
type Transport struct {
	// Base is the wrapped transport. http.DefaultTransport when nil.
	Base http.RoundTripper

	// Level for successful exchanges; failures always log at warn.
	Level slog.Level
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := req.Context()
	log := FromContext(ctx).With(
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.WarnContext(ctx, "http_client_error", "duration_ms", elapsed, "err", err)
		return nil, err
	}

	level := t.Level
	if resp.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "http_client_request",
		"status", resp.StatusCode,
		"duration_ms", elapsed,
	)
	return resp, nil
}
