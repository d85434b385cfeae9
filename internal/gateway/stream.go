package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// handleAuditStream upgrades to a WebSocket and streams audit events as
// JSON text frames until the client disconnects.
func (s *Server) handleAuditStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Auditor == nil {
			http.Error(w, "audit logger not configured", http.StatusServiceUnavailable)
			return
		}

		// The server write timeout would sever a long-lived stream.
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})
		_ = rc.SetReadDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "unexpected close")

		events, cancel := s.deps.Auditor.Subscribe()
		defer cancel()

		ctx := r.Context()
		s.logger.Debug("audit stream opened", "remote_addr", r.RemoteAddr)

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			case event, ok := <-events:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					s.logger.Error("audit event marshal failed", "error", err)
					continue
				}
				writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
				err = conn.Write(writeCtx, websocket.MessageText, data)
				cancelWrite()
				if err != nil {
					s.logger.Debug("audit stream closed", "error", err)
					return
				}
			}
		}
	}
}
