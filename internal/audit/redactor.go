package audit

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with a redaction
// placeholder. It supports both regex pattern matching (for known token
// formats) and literal value matching (for credentials loaded at
// runtime). All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with patterns for Okta API
// tokens and bearer credentials.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddLiteral adds a literal secret value that should be redacted on
// sight. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// DefaultPatterns returns compiled regex patterns for credential
// formats this gateway handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Okta API tokens: "00" prefix, 42 chars total.
		regexp.MustCompile(`\b00[a-zA-Z0-9_-]{40}\b`),
		// SSWS authorization values regardless of token shape.
		regexp.MustCompile(`(?i)SSWS\s+[^\s"']+`),
		// Bearer tokens in replayed headers.
		regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9._\-]{8,}`),
	}
}
