package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/oktamcp/oktamcp/internal/health"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string         `json:"status"` // "ok" or "degraded"
	Upstream *health.Status `json:"upstream,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while the upstream probe passes, 503 once it fails.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if s.deps.Monitor != nil {
			st := s.deps.Monitor.Status()
			resp.Upstream = &st
			if !st.CheckedAt.IsZero() && !st.Healthy {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
