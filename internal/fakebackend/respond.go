package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// failure is a handler error that maps to a {message} response.
type failure struct {
	status  int
	message string
}

func (f *failure) Error() string { return f.message }

func fail(status int, message string) error {
	return &failure{status: status, message: message}
}

var (
	errForbidden     = fail(http.StatusForbidden, "Access denied")
	errUserNotFound  = fail(http.StatusNotFound, "User not found")
	errGroupNotFound = fail(http.StatusNotFound, "Group not found")
	errFileNotFound  = fail(http.StatusNotFound, "File not found")
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var f *failure
	if errors.As(err, &f) {
		httpx.WriteMessage(w, f.status, f.message)
		return
	}
	slogx.FromContext(r.Context()).Error("request failed", "error", err)
	httpx.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fail(http.StatusBadRequest, "Malformed request body")
	}
	return nil
}
