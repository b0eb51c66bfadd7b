package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

// ExpiredTokenMessage is the backend message that triggers a refresh. It is
// matched exactly.
const ExpiredTokenMessage = httpx.MessageTokenExpired

// Fallback messages used when the backend supplies none.
const (
	MessageAPIError        = "API Error"
	MessageRetryError      = "API Error on retry"
	MessageNoRefreshToken  = "Unauthorized: No refresh token available"
	MessageRefreshFailed   = "Unable to refresh tokens"
	MessageInvalidLogin    = "Invalid credentials"
	MessageRegisterFailure = "Registration failed"
)

// ============================================================================
// Error kinds
// ============================================================================

// Kind classifies a failed call so callers can decide between asking the user
// to log in again and showing a transient error.
type Kind int

const (
	// KindAPI is a non-2xx response that is not the expiry sentinel.
	KindAPI Kind = iota + 1
	// KindUnauthenticated means the access token expired and no refresh token
	// was stored.
	KindUnauthenticated
	// KindRefreshFailed means the refresh endpoint rejected the refresh token.
	KindRefreshFailed
	// KindRetryFailed means the request failed again after a successful refresh.
	KindRetryFailed
	// KindDecode means a 2xx body could not be decoded.
	KindDecode
	// KindTransport means no response was received at all.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindRetryFailed:
		return "retry_failed"
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ============================================================================
// Error
// ============================================================================

// Error is returned by every call that fails.
type Error struct {
	Kind Kind

	// StatusCode of the response that caused the failure, 0 if none.
	StatusCode int

	// Message is the human-readable message, taken from the backend's
	// {message} body when present.
	Message string

	// Err is the underlying cause for decode and transport failures.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by Kind, so errors.Is(err,
// ErrRefreshFailed) holds for any refresh failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !isSentinel(t) {
		return false
	}
	return e.Kind == t.Kind
}

// ============================================================================
// Sentinels
// ============================================================================

var (
	ErrAPI             = &Error{Kind: KindAPI, Message: MessageAPIError}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: MessageNoRefreshToken}
	ErrRefreshFailed   = &Error{Kind: KindRefreshFailed, Message: MessageRefreshFailed}
	ErrRetryFailed     = &Error{Kind: KindRetryFailed, Message: MessageRetryError}
	ErrDecode          = &Error{Kind: KindDecode, Message: "failed to decode response"}
	ErrTransport       = &Error{Kind: KindTransport, Message: "failed to send request"}
)

// ErrNoContent is returned by helpers that need a value when the backend
// answered 204 No Content.
var ErrNoContent = errors.New("backend returned no content")

func isSentinel(e *Error) bool {
	switch e {
	case ErrAPI, ErrUnauthenticated, ErrRefreshFailed, ErrRetryFailed, ErrDecode, ErrTransport:
		return true
	}
	return false
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// RequiresLogin reports whether err means the stored session is unusable and
// the user has to log in again.
func RequiresLogin(err error) bool {
	switch KindOf(err) {
	case KindUnauthenticated, KindRefreshFailed:
		return true
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// ============================================================================
// Error body parsing
// ============================================================================

// parseMessage extracts the {message} field of an error body, returning
// fallback when the body is not JSON or the message is empty.
func parseMessage(body []byte, fallback string) string {
	var env httpx.ErrorBody
	if err := json.Unmarshal(body, &env); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(env.Message); msg != "" {
		return env.Message
	}
	return fallback
}

func apiError(kind Kind, resp *http.Response, body []byte, fallback string) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    parseMessage(body, fallback),
	}
}
