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
	defaultUserResults = 50
	maxUserResults     = 100
)

func userTools(d Deps) []tool.Tool {
	return []tool.Tool{
		listUsersTool(d),
		getUserTool(d),
		listUserGroupsTool(d),
		listUserApplicationsTool(d),
		listUserFactorsTool(d),
	}
}

type listUsersArgs struct {
	Query      string `json:"query"`
	Search     string `json:"search"`
	FilterType string `json:"filter_type"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
	MaxResults int    `json:"max_results"`
}

func listUsersTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_users",
		ToolDescription: "List Okta users with filtering. Returns the first 50 users by default " +
			"(max 100) to stay within context limits; use 'search' with SCIM filter syntax " +
			"(e.g. profile.department eq \"Engineering\" and status eq \"ACTIVE\") to narrow results. " +
			"Sorting only applies with 'search'.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Simple text search matched against firstName, lastName, or email"},
    "search": {"type": "string", "description": "SCIM filter syntax, e.g. profile.firstName eq \"Dan\""},
    "filter_type": {"type": "string", "description": "Filter expression (status, type, etc.); ignored when search is set"},
    "sort_by": {"type": "string", "description": "Field to sort by (only with search)", "default": "created"},
    "sort_order": {"type": "string", "enum": ["asc", "desc"], "default": "desc"},
    "max_results": {"type": "integer", "minimum": 1, "maximum": 100, "default": 50}
  }
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			in := listUsersArgs{SortBy: "created", SortOrder: "desc", MaxResults: defaultUserResults}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.MaxResults < 1 || in.MaxResults > maxUserResults {
				return nil, fmt.Errorf("%w: max_results must be between 1 and %d", tool.ErrInvalidArguments, maxUserResults)
			}
			order := strings.ToLower(in.SortOrder)
			if order != "asc" && order != "desc" {
				return nil, fmt.Errorf("%w: sort_order must be 'asc' or 'desc'", tool.ErrInvalidArguments)
			}

			d.Logger.Info("listing users",
				"query", in.Query, "search", in.Search, "max_results", in.MaxResults)

			n := d.API.ListUsers(ctx, okta.ListParams{
				Query:     in.Query,
				Search:    in.Search,
				Filter:    in.FilterType,
				SortBy:    in.SortBy,
				SortOrder: order,
				Limit:     in.MaxResults,
			})
			if n.Err != nil {
				return errorPayload("list_okta_users", n.Err), nil
			}

			users := n.Items
			if len(users) > in.MaxResults {
				users = users[:in.MaxResults]
			}
			hasMore := n.Cursor != nil && n.Cursor.HasNext() && len(n.Items) == in.MaxResults

			result := map[string]any{
				"users": itemDicts(users),
				"summary": map[string]any{
					"returned_count":  len(users),
					"max_requested":   in.MaxResults,
					"context_limited": true,
				},
			}
			switch {
			case hasMore:
				result["message"] = fmt.Sprintf(
					"Showing first %d users (limited for context). Use specific search filters "+
						"like 'profile.department eq \"Engineering\"' or 'status eq \"ACTIVE\"' "+
						"to find specific users.", len(users))
			case len(users) == 0:
				result["message"] = "No users found. Try broader search criteria or check your filters. " +
					"Use 'query' for simple name searches or 'search' for advanced SCIM filtering."
			default:
				result["message"] = fmt.Sprintf("Found %d users matching your criteria.", len(users))
			}
			return result, nil
		},
	}
}

type userIDArgs struct {
	UserID string `json:"user_id"`
}

func getUserTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "get_okta_user",
		ToolDescription: "Get detailed information about a single Okta user by ID or login " +
			"(email address).",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "user_id": {"type": "string", "description": "The ID or login of the user to retrieve"}
  },
  "required": ["user_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in userIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if strings.TrimSpace(in.UserID) == "" {
				return nil, fmt.Errorf("%w: user_id cannot be empty", tool.ErrInvalidArguments)
			}
			user, err := d.API.GetUser(ctx, strings.TrimSpace(in.UserID))
			if err != nil {
				return errorPayload("get_okta_user", err), nil
			}
			return map[string]any{"user": map[string]any(user)}, nil
		},
	}
}

func listUserGroupsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName:        "list_okta_user_groups",
		ToolDescription: "List all groups that a specific Okta user belongs to.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "user_id": {"type": "string", "description": "The ID or login of the user to retrieve groups for"}
  },
  "required": ["user_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in userIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			id, err := resolveUserID(ctx, d, in.UserID)
			if err != nil {
				if isArgError(err) {
					return nil, err
				}
				return errorPayload("list_okta_user_groups", err), nil
			}
			n := d.API.ListUserGroups(ctx, id)
			if n.Err != nil {
				return errorPayload("list_okta_user_groups", n.Err), nil
			}
			return map[string]any{
				"groups":       itemDicts(n.Items),
				"total_groups": len(n.Items),
			}, nil
		},
	}
}

type userAppsArgs struct {
	UserID  string `json:"user_id"`
	ShowAll *bool  `json:"show_all"`
}

func listUserApplicationsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_user_applications",
		ToolDescription: "List all application links (assigned applications) for a specific " +
			"Okta user. show_all includes links granted through group membership.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "user_id": {"type": "string", "description": "The ID or login of the user to retrieve applications for"},
    "show_all": {"type": "boolean", "default": true, "description": "Include app links granted through group membership"}
  },
  "required": ["user_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in userAppsArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			showAll := true
			if in.ShowAll != nil {
				showAll = *in.ShowAll
			}
			id, err := resolveUserID(ctx, d, in.UserID)
			if err != nil {
				if isArgError(err) {
					return nil, err
				}
				return errorPayload("list_okta_user_applications", err), nil
			}
			n := d.API.ListUserAppLinks(ctx, id, showAll)
			if n.Err != nil {
				return errorPayload("list_okta_user_applications", n.Err), nil
			}
			return map[string]any{
				"app_links":     itemDicts(n.Items),
				"total_results": len(n.Items),
			}, nil
		},
	}
}

func listUserFactorsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName:        "list_okta_user_factors",
		ToolDescription: "List all authentication factors enrolled for a specific Okta user.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "user_id": {"type": "string", "description": "The ID or login of the user to retrieve factors for"}
  },
  "required": ["user_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in userIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			id, err := resolveUserID(ctx, d, in.UserID)
			if err != nil {
				if isArgError(err) {
					return nil, err
				}
				return errorPayload("list_okta_user_factors", err), nil
			}
			n := d.API.ListUserFactors(ctx, id)
			if n.Err != nil {
				return errorPayload("list_okta_user_factors", n.Err), nil
			}
			return map[string]any{
				"factors":       itemDicts(n.Items),
				"total_factors": len(n.Items),
			}, nil
		},
	}
}
