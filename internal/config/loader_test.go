package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1"
okta:
  org_url: https://acme.okta.com
  api_token: 00token
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Gate.ConcurrentLimit != DefaultConcurrentLimit {
		t.Errorf("concurrent_limit = %d, want %d", cfg.Gate.ConcurrentLimit, DefaultConcurrentLimit)
	}
	if cfg.Gate.MaxPages != DefaultMaxPages {
		t.Errorf("max_pages = %d, want %d", cfg.Gate.MaxPages, DefaultMaxPages)
	}
	if cfg.Gate.InterPageDelay != DefaultInterPageDelay {
		t.Errorf("inter_page_delay = %s, want %s", cfg.Gate.InterPageDelay, DefaultInterPageDelay)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("transport = %q, want stdio", cfg.Server.Transport)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaulted config must validate: %v", err)
	}
}

func TestLoad_ExpandsEnvWithDefault(t *testing.T) {
	t.Setenv("TEST_OKTA_TOKEN", "00fromenv")
	path := writeConfig(t, `
version: "1"
okta:
  org_url: ${TEST_OKTA_ORG:-https://acme.okta.com}
  api_token: ${TEST_OKTA_TOKEN}
gate:
  concurrent_limit: ${TEST_GATE_LIMIT:-5}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Okta.APIToken != "00fromenv" {
		t.Errorf("api_token = %q, want value from env", cfg.Okta.APIToken)
	}
	if cfg.Okta.OrgURL != "https://acme.okta.com" {
		t.Errorf("org_url = %q, want fallback default", cfg.Okta.OrgURL)
	}
	if cfg.Gate.ConcurrentLimit != 5 {
		t.Errorf("concurrent_limit = %d, want 5", cfg.Gate.ConcurrentLimit)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
okta:
  api_token: ${DEFINITELY_NOT_SET_ANYWHERE}
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "DEFINITELY_NOT_SET_ANYWHERE") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Durations(t *testing.T) {
	path := writeConfig(t, `
version: "1"
okta:
  org_url: https://acme.okta.com
  api_token: 00token
  request_timeout: 10s
gate:
  inter_page_delay: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Okta.RequestTimeout != 10*time.Second {
		t.Errorf("request_timeout = %s", cfg.Okta.RequestTimeout)
	}
	if cfg.Gate.InterPageDelay != 500*time.Millisecond {
		t.Errorf("inter_page_delay = %s", cfg.Gate.InterPageDelay)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OKTA_ORG_URL", "https://dev-1.okta.com")
	t.Setenv("OKTA_API_TOKEN", "00envtoken")

	cfg := FromEnv()
	if cfg.Okta.OrgURL != "https://dev-1.okta.com" || cfg.Okta.APIToken != "00envtoken" {
		t.Fatalf("env settings not picked up: %+v", cfg.Okta)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("env config must validate: %v", err)
	}
}
