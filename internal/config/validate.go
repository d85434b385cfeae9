package config

import (
	"errors"
	"fmt"
	"strings"
)

var validTransports = map[string]bool{"stdio": true, "sse": true, "http": true}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the structural validity of a Config. It collects
// every problem rather than stopping at the first, so one run of a
// broken file reports everything.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateOkta(cfg.Okta)...)
	errs = append(errs, validateGate(cfg.Gate)...)
	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateAdmin(cfg.Admin)...)

	if cfg.Log.Level != "" && !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "" && cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format %q is not \"text\" or \"json\"", cfg.Log.Format))
	}

	return errors.Join(errs...)
}

func validateOkta(o OktaConfig) []error {
	var errs []error
	if o.OrgURL == "" {
		errs = append(errs, errors.New("config: okta.org_url is required"))
	} else if !strings.HasPrefix(o.OrgURL, "https://") {
		errs = append(errs, fmt.Errorf("config: okta.org_url %q must start with https://", o.OrgURL))
	}
	if o.APIToken == "" {
		errs = append(errs, errors.New("config: okta.api_token is required (set OKTA_API_TOKEN)"))
	}
	return errs
}

func validateGate(g GateConfig) []error {
	var errs []error
	if g.ConcurrentLimit < 1 {
		errs = append(errs, fmt.Errorf("config: gate.concurrent_limit must be at least 1, got %d", g.ConcurrentLimit))
	}
	if g.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("config: gate.max_pages must be at least 1, got %d", g.MaxPages))
	}
	if g.InterPageDelay < 0 {
		errs = append(errs, fmt.Errorf("config: gate.inter_page_delay must not be negative, got %s", g.InterPageDelay))
	}
	return errs
}

func validateServer(s ServerConfig) []error {
	var errs []error
	if !validTransports[s.Transport] {
		errs = append(errs, fmt.Errorf("config: server.transport %q is not one of stdio, sse, http", s.Transport))
	}
	if s.Transport != "stdio" && (s.Port < 1 || s.Port > 65535) {
		errs = append(errs, fmt.Errorf("config: server.port %d is out of range", s.Port))
	}
	return errs
}

func validateAdmin(a AdminConfig) []error {
	var errs []error
	if !a.Enabled {
		return nil
	}
	if a.Bind == "" {
		errs = append(errs, errors.New("config: admin.bind is required when admin is enabled"))
	}
	if a.BearerToken == "" {
		errs = append(errs, errors.New("config: admin.bearer_token is required when admin is enabled"))
	}
	return errs
}
