package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestTransportLogsRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithRequestID(WithContext(context.Background(), logger), "req-123")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/files/user", nil)
	require.NoError(t, err)

	client := &http.Client{Transport: &Transport{Level: slog.LevelInfo}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_client_request", line["msg"])
	require.Equal(t, "req-123", line["req_id"])
	require.Equal(t, "/files/user", line["path"])
	require.EqualValues(t, http.StatusTeapot, line["status"])
}

func TestHTTPMiddlewareRequestID(t *testing.T) {
	known := idx.New()

	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{name: "valid id is reused", header: known.String(), reused: true},
		{name: "garbage is replaced", header: "abc"},
		{name: "missing is generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.New(slog.NewJSONHandler(&buf, nil))

			h := HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).Info("handled")
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/actuator/health", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNoContent, rec.Code)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, "handled", line["msg"])
			require.Equal(t, "/actuator/health", line["path"])

			reqID, _ := line["req_id"].(string)
			if tt.reused {
				require.Equal(t, known.String(), reqID)
				return
			}
			_, err := idx.Parse(reqID)
			require.NoError(t, err, "Expected a generated ULID, got %q", reqID)
		})
	}
}
