package okta

import (
	"errors"
	"fmt"
	"time"

	"github.com/oktamcp/oktamcp/internal/gate"
)

// ErrNotConfigured is returned when the client is built without an org
// URL or API token.
var ErrNotConfigured = errors.New("okta: org URL and API token are required")

// ErrInvalidOrgURL is returned when the org URL is not an https URL.
var ErrInvalidOrgURL = errors.New("okta: org URL must start with https://")

// APIError is a decoded Okta API error body.
type APIError struct {
	// Status is the HTTP status of the response.
	Status int

	// Code is the Okta error code (e.g. "E0000007").
	Code string `json:"errorCode"`

	// Summary is the human-readable message from the API.
	Summary string `json:"errorSummary"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("okta api error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("okta api error %s: %s (HTTP %d)", e.Code, e.Summary, e.Status)
}

// RateLimitError is returned when the API rejects a call with HTTP 429
// or when the endpoint is still inside a previously observed rate-limit
// window. It unwraps to gate.ErrRateLimited so callers can classify it
// as retryable.
type RateLimitError struct {
	// Endpoint is the logical endpoint that was throttled.
	Endpoint string

	// Reset is when the rate-limit window ends, when known.
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("okta rate limit exceeded for %s", e.Endpoint)
	}
	return fmt.Sprintf("okta rate limit exceeded for %s, resets at %s",
		e.Endpoint, e.Reset.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return gate.ErrRateLimited }
