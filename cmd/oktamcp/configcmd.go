package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oktamcp/oktamcp/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("Configuration OK (org: %s, transport: %s)\n",
				cfg.Okta.OrgURL, cfg.Server.Transport)
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Interactively generate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "oktamcp.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}

			answers, err := runInitForm()
			if err != nil {
				return err
			}

			data, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", path)
			fmt.Println("Set OKTA_API_TOKEN in the environment before starting the server.")
			return nil
		},
	}
}

// initAnswers collects the wizard's responses.
type initAnswers struct {
	orgURL       string
	transport    string
	adminEnabled bool
	adminToken   string
	auditPath    string
}

func runInitForm() (initAnswers, error) {
	var a initAnswers

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Okta organization URL").
				Placeholder("https://acme.okta.com").
				Value(&a.orgURL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("must start with https://")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("MCP transport").
				Options(
					huh.NewOption("stdio (local MCP clients)", "stdio"),
					huh.NewOption("SSE", "sse"),
					huh.NewOption("streamable HTTP", "http"),
				).
				Value(&a.transport),
			huh.NewConfirm().
				Title("Enable the admin gateway (health, metrics, audit)?").
				Value(&a.adminEnabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Admin bearer token").
				Description("Protects the /admin routes on the admin gateway.").
				EchoMode(huh.EchoModePassword).
				Value(&a.adminToken),
			huh.NewInput().
				Title("Audit database path").
				Description("SQLite file for the audit trail. Leave empty to disable persistence.").
				Placeholder("oktamcp-audit.db").
				Value(&a.auditPath),
		).WithHideFunc(func() bool { return !a.adminEnabled }),
	)

	if err := form.Run(); err != nil {
		return initAnswers{}, err
	}
	return a, nil
}

// renderConfig produces the YAML document. The API token is referenced
// via environment expansion so the secret never lands on disk.
func renderConfig(a initAnswers) ([]byte, error) {
	cfg := map[string]any{
		"version": "1",
		"okta": map[string]any{
			"org_url":   a.orgURL,
			"api_token": "${OKTA_API_TOKEN}",
		},
		"server": map[string]any{
			"transport": a.transport,
		},
	}
	if a.adminEnabled {
		admin := map[string]any{
			"enabled": true,
			"bind":    config.DefaultAdminBind,
		}
		if a.adminToken != "" {
			admin["bearer_token"] = a.adminToken
		}
		cfg["admin"] = admin
	}
	if a.auditPath != "" {
		cfg["audit"] = map[string]any{"path": a.auditPath}
	}
	return yaml.Marshal(cfg)
}
