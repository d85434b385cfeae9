// Package tools implements the MCP tools the gateway exposes: Okta
// user, group, application, policy, and system-log queries plus
// datetime helpers for building time-based filters. Every upstream
// call goes through the shared admission gate via the Okta client, and
// multi-page reads go through the pagination walker.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oktamcp/oktamcp/internal/gate"
	"github.com/oktamcp/oktamcp/internal/okta"
	"github.com/oktamcp/oktamcp/internal/tool"
)

// API is the slice of the Okta client the tools consume. *okta.Client
// implements it; tests substitute a fake.
type API interface {
	ListUsers(ctx context.Context, p okta.ListParams) gate.Normalized
	GetUser(ctx context.Context, id string) (gate.Item, error)
	ListUserGroups(ctx context.Context, id string) gate.Normalized
	ListUserAppLinks(ctx context.Context, id string, showAll bool) gate.Normalized
	ListUserFactors(ctx context.Context, id string) gate.Normalized
	ListGroups(ctx context.Context, p okta.ListParams) gate.Normalized
	GetGroup(ctx context.Context, id string) (gate.Item, error)
	ListGroupUsers(ctx context.Context, id string, limit int) gate.Normalized
	ListApplications(ctx context.Context, p okta.AppListParams) gate.Normalized
	GetApplication(ctx context.Context, id string) (gate.Item, error)
	ListApplicationUsers(ctx context.Context, id string, limit int) gate.Normalized
	ListApplicationGroups(ctx context.Context, id string, limit int) gate.Normalized
	ListPolicyRules(ctx context.Context, policyID string) gate.Normalized
	GetPolicyRule(ctx context.Context, policyID, ruleID string) (gate.Item, error)
	ListNetworkZones(ctx context.Context, filter string) gate.Normalized
	ListLogEvents(ctx context.Context, p okta.LogParams) gate.Normalized
}

// Deps carries the shared dependencies every tool closes over.
type Deps struct {
	API    API
	Walker *gate.Walker
	Logger *slog.Logger
}

// All returns every tool the gateway exposes, ready for registration.
func All(d Deps) []tool.Tool {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	var out []tool.Tool
	out = append(out, userTools(d)...)
	out = append(out, groupTools(d)...)
	out = append(out, appTools(d)...)
	out = append(out, policyTools(d)...)
	out = append(out, logTools(d)...)
	out = append(out, datetimeTools(d)...)
	return out
}

// Register registers every tool with the registry.
func Register(r *tool.Registry, d Deps) error {
	for _, t := range All(d) {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("tools: registering %s: %w", t.Name(), err)
		}
	}
	return nil
}

// decodeArgs unmarshals tool arguments, treating empty input as an
// empty object.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", tool.ErrInvalidArguments, err)
	}
	return nil
}

// errorPayload converts an upstream failure into the structured error
// object clients receive instead of a protocol-level error, so the
// model can read and react to it.
func errorPayload(toolName string, err error) map[string]any {
	if gate.IsRateLimited(err) {
		return map[string]any{
			"error":   "rate_limit",
			"message": "Okta API rate limit exceeded. Please wait a moment and try again.",
			"tool":    toolName,
		}
	}
	return map[string]any{
		"error":   "api_error",
		"message": err.Error(),
		"tool":    toolName,
	}
}

// itemDicts converts items to plain maps for serialization.
func itemDicts(items []gate.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// paginationInfo summarises a completed walk. A walk that stopped on a
// page error still reports its partial results; the error rides along
// so callers know the set is incomplete.
func paginationInfo(ps gate.PageSet) map[string]any {
	info := map[string]any{
		"total_pages":   ps.PageCount,
		"total_results": len(ps.Items),
	}
	if ps.More() {
		info["has_more"] = true
	}
	if ps.Err != nil {
		info["incomplete"] = true
		info["error"] = ps.Err.Error()
	}
	return info
}

// isArgError distinguishes caller mistakes, which surface as protocol
// errors, from upstream failures, which surface as structured payloads.
func isArgError(err error) bool { return errors.Is(err, tool.ErrInvalidArguments) }

// resolveUserID converts a login (anything containing "@") to the
// canonical user ID before membership lookups.
func resolveUserID(ctx context.Context, d Deps, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user_id cannot be empty", tool.ErrInvalidArguments)
	}
	if !strings.Contains(userID, "@") {
		return userID, nil
	}
	d.Logger.Debug("resolving login to user ID", "login", userID)
	user, err := d.API.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	id, _ := user["id"].(string)
	if id == "" {
		return "", fmt.Errorf("okta: user %s has no id", userID)
	}
	return id, nil
}
