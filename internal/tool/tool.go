// Package tool defines the tool interface and execution model for
// oktamcp. Tools are the gateway's only surface: every upstream action
// an MCP client takes goes through a registered tool, and every
// execution is audited and measured.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the interface that all oktamcp tools implement. All tools
// are read-only against the upstream org.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the
	// tool does.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with the given arguments. The returned
	// value is serialised as the tool result.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Func adapts plain functions to the Tool interface, for tools with no
// state of their own.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolSchema      json.RawMessage
	Run             func(ctx context.Context, args json.RawMessage) (any, error)
}

func (f Func) Name() string            { return f.ToolName }
func (f Func) Description() string     { return f.ToolDescription }
func (f Func) Schema() json.RawMessage { return f.ToolSchema }

func (f Func) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	return f.Run(ctx, args)
}
