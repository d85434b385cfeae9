package tool

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oktamcp/oktamcp/internal/audit"
	"github.com/oktamcp/oktamcp/internal/observe"
)

// Schema is a tool's name paired with its description and JSON Schema,
// returned by Registry.Schemas.
type Schema struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Registry holds registered tools and orchestrates their execution
// through auditing, tracing, and metrics. It is instance-based (not
// global) for better testability.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	auditLogger *audit.Logger
	metrics     *observe.Metrics
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// SetAuditLogger configures audit logging for tool executions.
func (r *Registry) SetAuditLogger(logger *audit.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditLogger = logger
}

// SetMetrics configures metric recording for tool executions.
func (r *Registry) SetMetrics(m *observe.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register adds a tool to the registry. It returns ErrDuplicateTool if
// a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Schemas returns all registered tool schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for name, t := range r.tools {
		schemas = append(schemas, Schema{
			Name:        name,
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	slices.SortFunc(schemas, func(a, b Schema) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return schemas
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute orchestrates tool execution: lookup, span, audit call,
// execute, audit result, record metrics.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	al := r.auditLogger
	met := r.metrics
	r.mu.RUnlock()

	ctx, span := observe.StartSpan(ctx, "tool.execute",
		trace.WithAttributes(attribute.String("tool", name)))
	defer span.End()

	if al != nil {
		al.Log(audit.Event{
			Type:     audit.EventToolCall,
			ToolName: name,
			Detail:   truncateForAudit(string(args)),
		})
	}

	start := time.Now()
	result, err := t.Execute(ctx, args)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe.Logger(ctx).Warn("tool execution failed",
			"tool", name, "duration_ms", elapsed.Milliseconds(), "error", err)
	}
	if met != nil {
		met.ToolDuration.Record(ctx, elapsed.Seconds())
		met.RecordToolCall(ctx, name, status)
	}

	if al != nil {
		detail := ""
		if err != nil {
			detail = "error: " + err.Error()
		}
		al.Log(audit.Event{
			Type:     audit.EventToolResult,
			ToolName: name,
			Detail:   detail,
			Metadata: map[string]string{
				"is_error":    fmt.Sprintf("%v", err != nil),
				"duration_ms": fmt.Sprintf("%d", elapsed.Milliseconds()),
			},
		})
	}

	return result, err
}

// maxAuditDetailLen is the maximum length of audit detail strings.
// Longer values are truncated to prevent log bloat from large payloads.
const maxAuditDetailLen = 4096

// truncateForAudit truncates a string to maxAuditDetailLen, walking
// back to a valid UTF-8 rune boundary when the cut falls mid-rune.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
