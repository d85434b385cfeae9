package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/oktamcp/oktamcp/internal/config"
)

// program adapts the gateway to the system service manager lifecycle.
type program struct {
	cfgPath string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (p *program) Start(service.Service) error {
	cfg, err := config.Load(p.cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
			slog.Error("service run failed", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run or manage oktamcp as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, error) {
		path := cfgPath
		if path == "" {
			resolved, err := resolveConfigPath()
			if err != nil {
				return nil, err
			}
			path = resolved
		}
		return service.New(&program{cfgPath: path}, &service.Config{
			Name:        "oktamcp",
			DisplayName: "Okta MCP Gateway",
			Description: "MCP gateway for read-only Okta administration.",
			Arguments:   []string{"service", "run", "--config", path},
		})
	}

	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(svc, cmd.Use); err != nil {
					return err
				}
				fmt.Printf("Service %s: done\n", cmd.Use)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (invoked by the manager itself)",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if !service.Interactive() {
				return svc.Run()
			}
			fmt.Fprintln(os.Stderr, "running interactively; use 'oktamcp serve' instead")
			return svc.Run()
		},
	})

	return cmd
}
