package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/oktamcp/oktamcp/internal/audit"
)

// GateSnapshot reports the admission controller state.
type GateSnapshot struct {
	Active int64 `json:"active"`
	Queued int64 `json:"queued"`
	Limit  int   `json:"limit"`
}

// StatusResponse is the JSON response for GET /admin/status.
type StatusResponse struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	Tools         []string        `json:"tools"`
	Gate          *GateSnapshot   `json:"gate,omitempty"`
	MaxPages      int             `json:"max_pages,omitempty"`
	Upstream      *HealthResponse `json:"upstream,omitempty"`
}

// handleStatus reports uptime, the registered tool catalog, and the
// live admission controller counters.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
			Tools:         []string{},
		}

		if s.deps.Registry != nil {
			resp.Tools = s.deps.Registry.Names()
		}
		if s.deps.Admission != nil {
			resp.Gate = &GateSnapshot{
				Active: s.deps.Admission.Active(),
				Queued: s.deps.Admission.Queued(),
				Limit:  s.deps.Admission.Limit(),
			}
		}
		if s.deps.Walker != nil {
			resp.MaxPages = s.deps.Walker.MaxPages()
		}
		if s.deps.Monitor != nil {
			st := s.deps.Monitor.Status()
			hr := HealthResponse{Status: "ok", Upstream: &st}
			if !st.CheckedAt.IsZero() && !st.Healthy {
				hr.Status = "degraded"
			}
			resp.Upstream = &hr
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// handleAuditLog returns recent audit events, newest first.
// Query parameters: limit (default 100, max 1000) and type.
func (s *Server) handleAuditLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Store == nil {
			http.Error(w, "audit store not configured", http.StatusServiceUnavailable)
			return
		}

		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxAuditLimit)
		}

		typ := audit.EventType(r.URL.Query().Get("type"))

		events, err := s.deps.Store.Recent(limit, typ)
		if err != nil {
			s.logger.Error("audit query failed", "error", err)
			http.Error(w, "audit query failed", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []audit.Event{}
		}

		writeJSON(w, http.StatusOK, events)
	}
}

// handleRefreshTools re-registers the tool catalog against the upstream
// org. Useful after org-side changes without restarting the server.
func (s *Server) handleRefreshTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Refresh == nil {
			http.Error(w, "refresh not supported", http.StatusServiceUnavailable)
			return
		}

		if err := s.deps.Refresh(r.Context()); err != nil {
			s.logger.Error("tool refresh failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		count := 0
		if s.deps.Registry != nil {
			count = len(s.deps.Registry.Names())
		}
		if s.deps.Auditor != nil {
			s.deps.Auditor.Log(audit.Event{
				Type:     audit.EventRefresh,
				Detail:   "tool catalog refreshed",
				Metadata: map[string]string{"tools": strconv.Itoa(count)},
			})
		}

		s.logger.Info("tool catalog refreshed", "tools", count)
		writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "tools": count})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
