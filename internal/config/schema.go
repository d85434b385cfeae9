// Package config handles YAML configuration loading, environment
// variable expansion, defaulting, and structural validation for
// oktamcp.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is
	// supported.
	Version string `yaml:"version"`

	Okta      OktaConfig      `yaml:"okta"`
	Gate      GateConfig      `yaml:"gate"`
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Health    HealthConfig    `yaml:"health"`
	Log       LogConfig       `yaml:"log"`
}

// OktaConfig holds the upstream org connection settings.
type OktaConfig struct {
	// OrgURL is the Okta organization URL (https://<org>.okta.com).
	OrgURL string `yaml:"org_url"`

	// APIToken is the SSWS API token. Use ${OKTA_API_TOKEN} in the
	// file rather than a literal value.
	APIToken string `yaml:"api_token"`

	// RequestTimeout bounds each upstream HTTP request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// GateConfig holds the admission and pagination policy shared by every
// tool call in the process.
type GateConfig struct {
	// ConcurrentLimit caps concurrent upstream calls.
	ConcurrentLimit int `yaml:"concurrent_limit"`

	// MaxPages caps how many pages one pagination walk may fetch.
	MaxPages int `yaml:"max_pages"`

	// InterPageDelay is slept before each continuation fetch.
	InterPageDelay time.Duration `yaml:"inter_page_delay"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	// Transport is one of "stdio", "sse", or "http".
	Transport string `yaml:"transport"`

	// Host and Port apply to the network transports.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port for the network transports.
func (s ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// AdminConfig controls the operational HTTP endpoint (health, metrics,
// audit access).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`

	// BearerToken protects the /admin routes. Health and metrics stay
	// unauthenticated.
	BearerToken string `yaml:"bearer_token"`
}

// AuditConfig controls the audit trail store.
type AuditConfig struct {
	// Path is the SQLite database file. Empty disables persistence;
	// events still stream to subscribers.
	Path string `yaml:"path"`

	// Retention prunes events older than this on startup.
	Retention time.Duration `yaml:"retention"`
}

// TelemetryConfig controls the optional OTLP trace export. Metrics are
// always exposed on the admin endpoint.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint. Empty disables
	// trace export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure allows plain HTTP to the collector.
	Insecure bool `yaml:"insecure"`
}

// HealthConfig controls the periodic upstream connectivity probe.
type HealthConfig struct {
	// Schedule is a cron expression. Empty disables the probe.
	Schedule string `yaml:"schedule"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}
