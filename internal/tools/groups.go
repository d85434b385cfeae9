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
	defaultGroupResults = 50
	maxGroupResults     = 200

	// groupMemberPageSize is the per-page limit for membership walks,
	// sized large to minimise the number of paginated requests.
	groupMemberPageSize = 200
)

func groupTools(d Deps) []tool.Tool {
	return []tool.Tool{
		listGroupsTool(d),
		getGroupTool(d),
		listGroupUsersTool(d),
	}
}

type listGroupsArgs struct {
	Query      string `json:"query"`
	Search     string `json:"search"`
	FilterType string `json:"filter_type"`
	MaxResults int    `json:"max_results"`
}

func listGroupsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_groups",
		ToolDescription: "List Okta groups with filtering. Returns the first 50 groups by " +
			"default (max 200). Use 'search' with SCIM filter syntax " +
			"(e.g. type eq \"OKTA_GROUP\" or profile.name sw \"Engineering\") to narrow results.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Simple text search against group names"},
    "search": {"type": "string", "description": "SCIM filter syntax, e.g. profile.name sw \"Eng\""},
    "filter_type": {"type": "string", "description": "Filter expression; ignored when search is set"},
    "max_results": {"type": "integer", "minimum": 1, "maximum": 200, "default": 50}
  }
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			in := listGroupsArgs{MaxResults: defaultGroupResults}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.MaxResults < 1 || in.MaxResults > maxGroupResults {
				return nil, fmt.Errorf("%w: max_results must be between 1 and %d", tool.ErrInvalidArguments, maxGroupResults)
			}

			d.Logger.Info("listing groups",
				"query", in.Query, "search", in.Search, "max_results", in.MaxResults)

			n := d.API.ListGroups(ctx, okta.ListParams{
				Query:  in.Query,
				Search: in.Search,
				Filter: in.FilterType,
				Limit:  in.MaxResults,
			})
			if n.Err != nil {
				return errorPayload("list_okta_groups", n.Err), nil
			}

			groups := n.Items
			if len(groups) > in.MaxResults {
				groups = groups[:in.MaxResults]
			}
			hasMore := n.Cursor != nil && n.Cursor.HasNext() && len(n.Items) == in.MaxResults

			return map[string]any{
				"groups": itemDicts(groups),
				"summary": map[string]any{
					"returned_count":  len(groups),
					"max_requested":   in.MaxResults,
					"context_limited": true,
					"has_more":        hasMore,
				},
			}, nil
		},
	}
}

type groupIDArgs struct {
	GroupID string `json:"group_id"`
}

func getGroupTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName:        "get_okta_group",
		ToolDescription: "Get detailed information about a single Okta group by ID.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "group_id": {"type": "string", "description": "The ID of the group to retrieve"}
  },
  "required": ["group_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in groupIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if strings.TrimSpace(in.GroupID) == "" {
				return nil, fmt.Errorf("%w: group_id cannot be empty", tool.ErrInvalidArguments)
			}
			group, err := d.API.GetGroup(ctx, strings.TrimSpace(in.GroupID))
			if err != nil {
				return errorPayload("get_okta_group", err), nil
			}
			return map[string]any{"group": map[string]any(group)}, nil
		},
	}
}

func listGroupUsersTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_group_users",
		ToolDescription: "List all users in a specific Okta group. Paginates through the " +
			"complete membership so large groups return every member, not just the first page.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "group_id": {"type": "string", "description": "The ID of the group to list users for"}
  },
  "required": ["group_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in groupIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			groupID := strings.TrimSpace(in.GroupID)
			if groupID == "" {
				return nil, fmt.Errorf("%w: group_id cannot be empty", tool.ErrInvalidArguments)
			}

			d.Logger.Info("listing group members", "group_id", groupID)

			initial := d.API.ListGroupUsers(ctx, groupID, groupMemberPageSize)
			ps := d.Walker.Collect(ctx, initial)
			if ps.Err != nil && len(ps.Items) == 0 {
				return errorPayload("list_okta_group_users", ps.Err), nil
			}

			return map[string]any{
				"users":      itemDicts(ps.Items),
				"group_id":   groupID,
				"pagination": paginationInfo(ps),
			}, nil
		},
	}
}
