package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oktamcp/oktamcp/internal/okta"
	"github.com/oktamcp/oktamcp/internal/tool"
)

// logPageSize is the per-page limit for system log queries, the
// maximum the API accepts.
const logPageSize = 500

func logTools(d Deps) []tool.Tool {
	return []tool.Tool{getEventLogsTool(d)}
}

type eventLogsArgs struct {
	Since        string `json:"since"`
	Until        string `json:"until"`
	FilterString string `json:"filter_string"`
	Q            string `json:"q"`
	SortOrder    string `json:"sort_order"`
}

func getEventLogsTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "get_okta_event_logs",
		ToolDescription: "Get Okta system log events with filtering and full pagination for " +
			"complete audit trails. Filter with Okta expression language, e.g. " +
			"eventType eq \"user.authentication.auth\" and outcome.result eq \"FAILURE\". " +
			"Use the datetime tools to build since/until timestamps.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "since": {"type": "string", "description": "Starting time in ISO 8601 format, e.g. 2024-06-01T00:00:00.000Z"},
    "until": {"type": "string", "description": "Ending time in ISO 8601 format"},
    "filter_string": {"type": "string", "description": "Okta expression language filter for events"},
    "q": {"type": "string", "description": "Free-text search across event data"},
    "sort_order": {"type": "string", "enum": ["ASCENDING", "DESCENDING"], "default": "DESCENDING"}
  }
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			in := eventLogsArgs{SortOrder: "DESCENDING"}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			order := strings.ToUpper(in.SortOrder)
			if order != "ASCENDING" && order != "DESCENDING" {
				return nil, fmt.Errorf("%w: sort_order must be 'ASCENDING' or 'DESCENDING'", tool.ErrInvalidArguments)
			}

			d.Logger.Info("querying system log",
				"since", in.Since, "until", in.Until, "filter", in.FilterString, "q", in.Q)

			initial := d.API.ListLogEvents(ctx, okta.LogParams{
				Since:     in.Since,
				Until:     in.Until,
				Filter:    in.FilterString,
				Query:     in.Q,
				SortOrder: order,
				Limit:     logPageSize,
			})
			ps := d.Walker.Collect(ctx, initial)
			if ps.Err != nil && len(ps.Items) == 0 {
				return errorPayload("get_okta_event_logs", ps.Err), nil
			}

			return map[string]any{
				"log_events": itemDicts(ps.Items),
				"pagination": paginationInfo(ps),
			}, nil
		},
	}
}
