package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(jwtx.Claims)
	return c, ok
}

// BearerAuth verifies the bearer token and stores its claims in the request
// context. Expired tokens are answered with MessageTokenExpired so clients
// can refresh; anything else is a plain 401.
func BearerAuth(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				WriteMessage(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			switch {
			case errors.Is(err, jwtx.ErrExpired):
				WriteMessage(w, http.StatusUnauthorized, MessageTokenExpired)
				return
			case err != nil:
				slogx.FromContext(r.Context()).Debug("jwt verify failed", "err", err)
				WriteMessage(w, http.StatusUnauthorized, "Invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
