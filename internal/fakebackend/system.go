package fakebackend

import (
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

// handleHealth mirrors the actuator health document: 200 when UP, 503 when
// DOWN.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "UP", http.StatusOK
	if !s.healthy.Load() {
		status, code = "DOWN", http.StatusServiceUnavailable
	}

	httpx.WriteJSON(w, code, apiclient.HealthResponse{
		Status: status,
		Components: map[string]apiclient.HealthComponent{
			"db": {Status: status, Details: map[string]any{"database": "memory"}},
			"refreshTokens": {Status: "UP", Details: map[string]any{
				"active": s.activeRefreshTokens(),
			}},
		},
	})
}
