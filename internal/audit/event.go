// Package audit records security-relevant events: every tool call and
// result, upstream rate limiting, and admin authentication. Events are
// redacted, optionally persisted to SQLite, and fanned out to live
// subscribers.
package audit

import "time"

// EventType categorizes audit events.
type EventType string

// Audit event types covering the gateway's security-relevant
// interactions.
const (
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventRateLimit   EventType = "rate_limit"
	EventAuthSuccess EventType = "auth_success"
	EventAuthFailure EventType = "auth_failure"
	EventHealth      EventType = "health"
	EventRefresh     EventType = "refresh"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	ToolName  string            `json:"tool_name,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
