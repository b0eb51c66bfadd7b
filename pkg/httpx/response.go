package httpx

import (
	"encoding/json"
	"net/http"
)

// MessageTokenExpired is the exact error message the backend uses to signal
// an expired access token. Clients match it verbatim.
const MessageTokenExpired = "Access token expired"

// ErrorBody is the backend's error envelope.
type ErrorBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status code and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes the {message} error envelope.
func WriteMessage(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, ErrorBody{Message: msg})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
