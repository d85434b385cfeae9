// Package gateway provides the admin HTTP server: health and Prometheus
// metrics endpoints plus bearer-protected administration routes. It binds
// to loopback by default and is entirely optional — the MCP transport
// works without it.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oktamcp/oktamcp/internal/audit"
	"github.com/oktamcp/oktamcp/internal/gate"
	"github.com/oktamcp/oktamcp/internal/health"
	"github.com/oktamcp/oktamcp/internal/tool"
)

// Deps carries the collaborators the admin endpoints expose. Any field
// may be nil; the corresponding endpoint degrades gracefully.
type Deps struct {
	Monitor   *health.Monitor
	Admission *gate.Admission
	Walker    *gate.Walker
	Registry  *tool.Registry
	Store     *audit.Store
	Auditor   *audit.Logger

	// Refresh re-registers the tool catalog against the upstream org.
	// Invoked by POST /admin/refresh-tools.
	Refresh func(context.Context) error
}

// Server is the admin HTTP server.
type Server struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// NewServer creates the admin server. logger must not be nil.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	cfg.defaults()
	if _, err := net.ResolveTCPAddr("tcp", cfg.Bind); err != nil {
		return nil, errors.New("gateway: invalid bind address: " + cfg.Bind)
	}
	return &Server{config: cfg, deps: deps, logger: logger}, nil
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("admin gateway listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully with the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("admin gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
