package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/oktamcp/oktamcp/internal/audit"
)

// authMiddleware returns a chi-compatible middleware that validates the
// Bearer token using constant-time comparison. auth_success and
// auth_failure events are emitted to the audit logger when one is wired.
func (s *Server) authMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				s.emitAuthEvent(audit.EventAuthFailure, r, "missing authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if constantTimeEqual(after, s.config.BearerToken) {
					s.emitAuthEvent(audit.EventAuthSuccess, r, "bearer")
					next.ServeHTTP(w, r)
					return
				}
			}

			s.emitAuthEvent(audit.EventAuthFailure, r, "invalid credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// emitAuthEvent logs an auth event to the audit logger if available.
func (s *Server) emitAuthEvent(eventType audit.EventType, r *http.Request, detail string) {
	if s.deps.Auditor == nil {
		return
	}
	s.deps.Auditor.Log(audit.Event{
		Type:   eventType,
		Detail: detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
