package gate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited marks an upstream failure caused by the Okta API rate
// limit. Callers surface it as a retryable "try again shortly" condition
// instead of a generic failure.
var ErrRateLimited = errors.New("okta api rate limit exceeded")

// ErrLimitInvalid is returned when an Admission is constructed with a
// non-positive concurrency limit.
var ErrLimitInvalid = errors.New("concurrent limit must be positive")

// ShapeError reports an upstream response shape the normalizer cannot
// classify with confidence. It is carried inside a Normalized value and
// never raised: the caller sees it as the page error and stops paginating.
type ShapeError struct {
	// Elements is the arity of the unrecognized tuple-like value.
	Elements int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected upstream response shape: %d elements", e.Elements)
}

// PageError wraps a failure while fetching a continuation page. The walker
// returns it alongside everything accumulated before the failing page.
type PageError struct {
	// Page is the 1-indexed number of the page that failed.
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err represents an Okta rate-limit
// rejection. Besides the ErrRateLimited sentinel it matches the error
// text the Okta API uses, since errors surfaced through normalized
// responses may originate outside this package.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
