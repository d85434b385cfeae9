package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/oktamcp/oktamcp/internal/audit"
	"github.com/oktamcp/oktamcp/internal/config"
	"github.com/oktamcp/oktamcp/internal/gate"
	"github.com/oktamcp/oktamcp/internal/gateway"
	"github.com/oktamcp/oktamcp/internal/health"
	"github.com/oktamcp/oktamcp/internal/observe"
	"github.com/oktamcp/oktamcp/internal/okta"
	"github.com/oktamcp/oktamcp/internal/server"
	"github.com/oktamcp/oktamcp/internal/tool"
	"github.com/oktamcp/oktamcp/internal/tools"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP gateway",
		Long: "Start the MCP gateway. Without --config, a config file is searched in\n" +
			"standard locations; if none exists, configuration falls back to the\n" +
			"OKTA_ORG_URL and OKTA_API_TOKEN environment variables.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			if cfg.Server.Transport != "stdio" {
				acknowledged, _ := cmd.Flags().GetBool("i-understand-the-risks")
				if !acknowledged {
					return fmt.Errorf("transport %q exposes org data over the network; "+
						"pass --i-understand-the-risks to enable it", cfg.Server.Transport)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().Bool("i-understand-the-risks", false,
		"Acknowledge that a network transport exposes org data beyond this machine")
	return cmd
}

// loadConfig resolves the config file, falling back to environment
// variables when no file exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	if resolved, err := resolveConfigPath(); err == nil {
		return config.Load(resolved)
	}
	return config.FromEnv(), nil
}

// buildLogger constructs the process logger. stdout carries the MCP
// stdio transport, so logs always go to stderr.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// run wires every component and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	adm, err := gate.NewAdmission(cfg.Gate.ConcurrentLimit, logger)
	if err != nil {
		return fmt.Errorf("creating admission gate: %w", err)
	}
	if err := metrics.RegisterAdmissionGauges(adm.Active, adm.Queued); err != nil {
		return fmt.Errorf("registering gate gauges: %w", err)
	}
	walker := gate.NewWalker(gate.WalkerConfig{
		MaxPages:       cfg.Gate.MaxPages,
		InterPageDelay: cfg.Gate.InterPageDelay,
	}, logger)

	redactor := audit.NewRedactor()
	redactor.AddLiteral(cfg.Okta.APIToken)

	var store *audit.Store
	if cfg.Audit.Path != "" {
		store, err = audit.OpenStore(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()

		if cfg.Audit.Retention > 0 {
			pruned, err := store.Prune(cfg.Audit.Retention)
			if err != nil {
				logger.Warn("audit prune failed", "error", err)
			} else if pruned > 0 {
				logger.Info("pruned expired audit events", "count", pruned)
			}
		}
	}

	auditor := audit.NewLogger(audit.LoggerConfig{
		Store:    store,
		Redactor: redactor,
		Slog:     logger,
	})

	client, err := okta.New(okta.Config{
		OrgURL:         cfg.Okta.OrgURL,
		APIToken:       cfg.Okta.APIToken,
		RequestTimeout: cfg.Okta.RequestTimeout,
	}, adm, logger)
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}

	registry := tool.NewRegistry()
	registry.SetAuditLogger(auditor)
	registry.SetMetrics(metrics)
	if err := tools.Register(registry, tools.Deps{
		API:    client,
		Walker: walker,
		Logger: logger,
	}); err != nil {
		return err
	}

	mcpServer := server.New(server.Config{
		Transport: cfg.Server.Transport,
		Addr:      cfg.Server.Addr(),
		Version:   version,
	}, registry, logger)

	var monitor *health.Monitor
	if cfg.Health.Schedule != "" {
		monitor = health.NewMonitor(client, logger, auditor)
		if err := monitor.Start(cfg.Health.Schedule); err != nil {
			return err
		}
		defer monitor.Stop(context.Background())
	}

	if cfg.Admin.Enabled {
		gw, err := gateway.NewServer(gateway.Config{
			Bind:        cfg.Admin.Bind,
			BearerToken: cfg.Admin.BearerToken,
		}, gateway.Deps{
			Monitor:   monitor,
			Admission: adm,
			Walker:    walker,
			Registry:  registry,
			Store:     store,
			Auditor:   auditor,
			Refresh: func(ctx context.Context) error {
				if err := client.Ping(ctx); err != nil {
					return err
				}
				mcpServer.SyncTools()
				return nil
			},
		}, logger)
		if err != nil {
			return err
		}
		if err := gw.Start(); err != nil {
			return err
		}
		defer gw.Stop(context.Background())
	}

	logger.Info("oktamcp starting",
		"version", version,
		"org_url", cfg.Okta.OrgURL,
		"transport", cfg.Server.Transport,
		"tools", len(registry.Names()),
	)
	return mcpServer.Run(ctx)
}
