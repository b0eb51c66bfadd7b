package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("listing files: %w", &Error{Kind: KindRefreshFailed, StatusCode: 401, Message: MessageRefreshFailed})

	require.ErrorIs(t, err, ErrRefreshFailed)
	require.NotErrorIs(t, err, ErrRetryFailed)
	require.NotErrorIs(t, err, &Error{Kind: KindRefreshFailed}, "only sentinels match by kind")
	require.True(t, RequiresLogin(err))
	require.Equal(t, KindRefreshFailed, KindOf(err))
	require.Equal(t, 401, StatusCode(err))

	require.Zero(t, KindOf(errors.New("plain")))
	require.Zero(t, StatusCode(nil))
	require.False(t, RequiresLogin(nil))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	require.Equal(t, "failed to send request: connection refused",
		(&Error{Kind: KindTransport, Message: "failed to send request", Err: cause}).Error())
	require.Equal(t, "connection refused", (&Error{Kind: KindTransport, Err: cause}).Error())
	require.Equal(t, "Group not found", (&Error{Kind: KindAPI, Message: "Group not found"}).Error())

	require.Equal(t, "retry_failed", KindRetryFailed.String())
	require.Equal(t, "kind(42)", Kind(42).String())
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"User not found"}`, "User not found"},
		{"extra fields", `{"message":"Conflict","status":409}`, "Conflict"},
		{"empty message", `{"message":""}`, "fallback"},
		{"no message", `{"error":"x"}`, "fallback"},
		{"html", `<html>bad gateway</html>`, "fallback"},
		{"empty body", ``, "fallback"},
		{"wrong type", `{"message":12}`, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseMessage([]byte(tt.body), "fallback"))
		})
	}
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	var v struct {
		At Timestamp `json:"at"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"at":"2024-05-06T07:08:09.123456"}`), &v))
	require.Equal(t, 2024, v.At.Year())
	require.Equal(t, 123456000, v.At.Nanosecond())

	require.NoError(t, json.Unmarshal([]byte(`{"at":"2024-05-06T07:08:09+10:00"}`), &v))
	require.Equal(t, 21, v.At.UTC().Hour())

	require.NoError(t, json.Unmarshal([]byte(`{"at":null}`), &v))
	require.True(t, v.At.IsZero())

	require.Error(t, json.Unmarshal([]byte(`{"at":"yesterday"}`), &v))

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}

func TestDispositionFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "report.pdf", dispositionFilename(`attachment; filename="report.pdf"`))
	require.Equal(t, "a b.txt", dispositionFilename(`attachment; filename="a b.txt"`))
	require.Empty(t, dispositionFilename(""))
	require.Empty(t, dispositionFilename("attachment"))
}

func TestParsePermission(t *testing.T) {
	t.Parallel()

	p, ok := ParsePermission(" write ")
	require.True(t, ok)
	require.Equal(t, PermissionWrite, p)

	_, ok = ParsePermission("admin")
	require.False(t, ok)
}
