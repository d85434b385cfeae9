package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Defaults for fields left unset in the file. The gate values match the
// upstream API's practical limits: fifteen concurrent calls keeps a
// single gateway inside one org's rate allowance, and the inter-page
// delay spreads pagination bursts out.
const (
	DefaultConcurrentLimit = 15
	DefaultMaxPages        = 50
	DefaultInterPageDelay  = 200 * time.Millisecond
	DefaultRequestTimeout  = 30 * time.Second
	DefaultTransport       = "stdio"
	DefaultPort            = 3000
	DefaultAdminBind       = "127.0.0.1:9090"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Load reads a YAML configuration file, expands environment variables,
// parses it, and applies defaults. Call Validate on the result before
// using it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// FromEnv builds a configuration from environment variables alone, for
// running without a config file. OKTA_ORG_URL and OKTA_API_TOKEN are
// the only required settings.
func FromEnv() *Config {
	cfg := &Config{
		Version: "1",
		Okta: OktaConfig{
			OrgURL:   os.Getenv("OKTA_ORG_URL"),
			APIToken: os.Getenv("OKTA_API_TOKEN"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Okta.RequestTimeout <= 0 {
		c.Okta.RequestTimeout = DefaultRequestTimeout
	}
	if c.Gate.ConcurrentLimit == 0 {
		c.Gate.ConcurrentLimit = DefaultConcurrentLimit
	}
	if c.Gate.MaxPages == 0 {
		c.Gate.MaxPages = DefaultMaxPages
	}
	if c.Gate.InterPageDelay == 0 {
		c.Gate.InterPageDelay = DefaultInterPageDelay
	}
	if c.Server.Transport == "" {
		c.Server.Transport = DefaultTransport
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Admin.Bind == "" {
		c.Admin.Bind = DefaultAdminBind
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
