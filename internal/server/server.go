// Package server exposes the tool registry over the Model Context
// Protocol. It supports stdio for local MCP clients plus SSE and
// streamable HTTP for network deployments.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/oktamcp/oktamcp/internal/tool"
)

const serverName = "oktamcp"

const instructions = `Read-only access to an Okta organization: users, groups,
applications, policy rules, network zones, and the system log. List tools
accept search/filter expressions in Okta SCIM syntax. Use get_current_time and
parse_relative_time to build timestamps for get_okta_event_logs. Results are
JSON; paginated tools report progress under a "pagination" key.`

// Config selects the MCP transport.
type Config struct {
	// Transport is one of "stdio", "sse", or "http".
	Transport string
	// Addr is the listen address for the network transports.
	Addr string
	// Version is reported to clients during initialization.
	Version string
}

// Server bridges the tool registry onto an MCP server.
type Server struct {
	config   Config
	registry *tool.Registry
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// New builds the MCP server and registers every tool in the registry.
func New(cfg Config, registry *tool.Registry, logger *slog.Logger) *Server {
	s := &Server{
		config:   cfg,
		registry: registry,
		logger:   logger,
		mcp: server.NewMCPServer(serverName, cfg.Version,
			server.WithInstructions(instructions),
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.SyncTools()
	return s
}

// SyncTools publishes the registry's current catalog to connected
// clients. Safe to call again after the registry changes.
func (s *Server) SyncTools() {
	for _, schema := range s.registry.Schemas() {
		t := mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Schema)
		s.mcp.AddTool(t, s.handler(schema.Name))
	}
	s.logger.Debug("tool catalog published", "tools", len(s.registry.Names()))
}

// handler adapts a registry tool to the MCP call convention. Execution
// errors surface as tool results rather than protocol errors so the
// client model can read them.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		out, err := s.registry.Execute(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if text, ok := out.(string); ok {
			return mcp.NewToolResultText(text), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError("result serialization failed: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// Run serves the configured transport until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Transport {
	case "stdio", "":
		s.logger.Info("serving MCP over stdio")
		stdio := server.NewStdioServer(s.mcp)
		return stdio.Listen(ctx, os.Stdin, os.Stdout)

	case "sse":
		s.logger.Info("serving MCP over SSE", "addr", s.config.Addr)
		sse := server.NewSSEServer(s.mcp)
		return s.serveHTTP(ctx, sse)

	case "http":
		s.logger.Info("serving MCP over streamable HTTP", "addr", s.config.Addr)
		httpSrv := server.NewStreamableHTTPServer(s.mcp)
		return s.serveHTTP(ctx, httpSrv)

	default:
		return fmt.Errorf("server: unknown transport %q", s.config.Transport)
	}
}

// netServer is the common surface of the mcp-go network transports.
type netServer interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

func (s *Server) serveHTTP(ctx context.Context, srv netServer) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(s.config.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
