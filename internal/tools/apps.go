package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oktamcp/oktamcp/internal/okta"
	"github.com/oktamcp/oktamcp/internal/tool"
)

const (
	defaultAppResults = 50
	maxAppResults     = 200

	// appAssignmentPageSize is the per-page limit for assignment walks.
	appAssignmentPageSize = 200
)

func appTools(d Deps) []tool.Tool {
	return []tool.Tool{
		listApplicationsTool(d),
		getApplicationTool(d),
		listApplicationUsersTool(d),
		listApplicationGroupsTool(d),
	}
}

type listAppsArgs struct {
	Query      string `json:"query"`
	FilterType string `json:"filter_type"`
	MaxResults int    `json:"max_results"`
}

func listApplicationsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_applications",
		ToolDescription: "List applications in the Okta org. Returns the first 50 apps by " +
			"default (max 200). Use 'filter_type' like status eq \"ACTIVE\" to narrow results.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Text search against application names"},
    "filter_type": {"type": "string", "description": "Filter expression, e.g. status eq \"ACTIVE\""},
    "max_results": {"type": "integer", "minimum": 1, "maximum": 200, "default": 50}
  }
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			in := listAppsArgs{MaxResults: defaultAppResults}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.MaxResults < 1 || in.MaxResults > maxAppResults {
				return nil, fmt.Errorf("%w: max_results must be between 1 and %d", tool.ErrInvalidArguments, maxAppResults)
			}

			d.Logger.Info("listing applications",
				"query", in.Query, "filter", in.FilterType, "max_results", in.MaxResults)

			n := d.API.ListApplications(ctx, okta.AppListParams{
				Q:      in.Query,
				Filter: in.FilterType,
				Limit:  in.MaxResults,
			})
			if n.Err != nil {
				return errorPayload("list_okta_applications", n.Err), nil
			}

			apps := n.Items
			if len(apps) > in.MaxResults {
				apps = apps[:in.MaxResults]
			}
			hasMore := n.Cursor != nil && n.Cursor.HasNext() && len(n.Items) == in.MaxResults

			return map[string]any{
				"applications": itemDicts(apps),
				"summary": map[string]any{
					"returned_count": len(apps),
					"limit":          in.MaxResults,
					"has_more":       hasMore,
				},
			}, nil
		},
	}
}

type appIDArgs struct {
	AppID string `json:"app_id"`
}

func getApplicationTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName:        "get_okta_application",
		ToolDescription: "Get detailed information about a single Okta application by ID.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "app_id": {"type": "string", "description": "The ID of the application to retrieve"}
  },
  "required": ["app_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in appIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if strings.TrimSpace(in.AppID) == "" {
				return nil, fmt.Errorf("%w: app_id cannot be empty", tool.ErrInvalidArguments)
			}
			app, err := d.API.GetApplication(ctx, strings.TrimSpace(in.AppID))
			if err != nil {
				return errorPayload("get_okta_application", err), nil
			}
			return map[string]any{"application": map[string]any(app)}, nil
		},
	}
}

func listApplicationUsersTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_application_users",
		ToolDescription: "List all users assigned to a specific Okta application, paginating " +
			"through the complete assignment list.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "app_id": {"type": "string", "description": "The ID of the application to list users for"}
  },
  "required": ["app_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in appIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			appID := strings.TrimSpace(in.AppID)
			if appID == "" {
				return nil, fmt.Errorf("%w: app_id cannot be empty", tool.ErrInvalidArguments)
			}

			initial := d.API.ListApplicationUsers(ctx, appID, appAssignmentPageSize)
			ps := d.Walker.Collect(ctx, initial)
			if ps.Err != nil && len(ps.Items) == 0 {
				return errorPayload("list_okta_application_users", ps.Err), nil
			}

			return map[string]any{
				"users":          itemDicts(ps.Items),
				"application_id": appID,
				"pagination":     paginationInfo(ps),
			}, nil
		},
	}
}

func listApplicationGroupsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_application_groups",
		ToolDescription: "List all group assignments for a specific Okta application, " +
			"paginating through the complete list.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "app_id": {"type": "string", "description": "The ID of the application to list groups for"}
  },
  "required": ["app_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in appIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			appID := strings.TrimSpace(in.AppID)
			if appID == "" {
				return nil, fmt.Errorf("%w: app_id cannot be empty", tool.ErrInvalidArguments)
			}

			initial := d.API.ListApplicationGroups(ctx, appID, appAssignmentPageSize)
			ps := d.Walker.Collect(ctx, initial)
			if ps.Err != nil && len(ps.Items) == 0 {
				return errorPayload("list_okta_application_groups", ps.Err), nil
			}

			return map[string]any{
				"groups":         itemDicts(ps.Items),
				"application_id": appID,
				"pagination":     paginationInfo(ps),
			}, nil
		},
	}
}
