package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oktamcp/oktamcp/internal/tool"
)

// oktaTimeFormat is the timestamp layout the upstream API accepts in
// date parameters: ISO 8601 with microseconds and an explicit Z.
const oktaTimeFormat = "2006-01-02T15:04:05.000000Z"

// timeNow is swapped out in tests.
var timeNow = time.Now

func datetimeTools(d Deps) []tool.Tool {
	return []tool.Tool{currentTimeTool(), relativeTimeTool(d)}
}

type currentTimeArgs struct {
	BufferHours int `json:"buffer_hours"`
}

func currentTimeTool() tool.Tool {
	return tool.Func{
		ToolName: "get_current_time",
		ToolDescription: "Get the current UTC date and time formatted for Okta API usage " +
			"(YYYY-MM-DDTHH:MM:SS.ffffffZ). Use buffer_hours to shift into the past " +
			"(negative) or future (positive), e.g. -24 for 24 hours ago.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "buffer_hours": {"type": "integer", "default": 0, "description": "Hours to add (positive) or subtract (negative) from now"}
  }
}`),
		Run: func(_ context.Context, args json.RawMessage) (any, error) {
			var in currentTimeArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			t := timeNow().UTC().Add(time.Duration(in.BufferHours) * time.Hour)
			return t.Format(oktaTimeFormat), nil
		},
	}
}

type relativeTimeArgs struct {
	TimeExpression string `json:"time_expression"`
}

func relativeTimeTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "parse_relative_time",
		ToolDescription: "Parse a natural language time expression into an Okta " +
			"API-compatible timestamp. Supports expressions like '2 days ago', " +
			"'1 week ago', 'yesterday', 'last month', 'beginning of today', " +
			"'end of yesterday', and 'start of this week'.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "time_expression": {"type": "string", "description": "Natural language time expression, e.g. \"24 hours ago\""}
  },
  "required": ["time_expression"]
}`),
		Run: func(_ context.Context, args json.RawMessage) (any, error) {
			var in relativeTimeArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			expr := strings.TrimSpace(in.TimeExpression)
			if expr == "" {
				return nil, fmt.Errorf("%w: time_expression cannot be empty", tool.ErrInvalidArguments)
			}
			t, err := parseRelativeTime(expr, timeNow().UTC())
			if err != nil {
				d.Logger.Warn("unparseable time expression", "expression", expr)
				return nil, err
			}
			return t.Format(oktaTimeFormat), nil
		},
	}
}

// parseRelativeTime resolves a natural-language expression against now.
func parseRelativeTime(expr string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.Join(strings.Fields(s), " ")

	// Period boundaries: "beginning of X" / "start of X" / "end of X".
	if rest, ok := cutPrefix(s, "beginning of ", "start of "); ok {
		t, err := parseDayExpression(rest, now)
		if err != nil {
			return time.Time{}, err
		}
		return startOfPeriod(rest, t), nil
	}
	if rest, ok := cutPrefix(s, "end of "); ok {
		t, err := parseDayExpression(rest, now)
		if err != nil {
			return time.Time{}, err
		}
		return endOfPeriod(rest, t), nil
	}

	switch s {
	case "now":
		return now, nil
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)), nil
	case "tomorrow":
		return startOfDay(now.AddDate(0, 0, 1)), nil
	case "last week":
		return now.AddDate(0, 0, -7), nil
	case "last month":
		return now.AddDate(0, -1, 0), nil
	case "last year":
		return now.AddDate(-1, 0, 0), nil
	}

	// "N <unit> ago" / "in N <unit>".
	if rest, ok := strings.CutSuffix(s, " ago"); ok {
		d, err := parseAmount(rest, now)
		if err != nil {
			return time.Time{}, err
		}
		return d(-1), nil
	}
	if rest, ok := strings.CutPrefix(s, "in "); ok {
		d, err := parseAmount(rest, now)
		if err != nil {
			return time.Time{}, err
		}
		return d(1), nil
	}

	return time.Time{}, fmt.Errorf("%w: could not parse time expression %q", tool.ErrInvalidArguments, expr)
}

// parseAmount parses "<n> <unit>" and returns a function applying the
// amount in the given direction.
func parseAmount(s string, now time.Time) (func(sign int) time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: could not parse amount %q", tool.ErrInvalidArguments, s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		if fields[0] == "a" || fields[0] == "an" || fields[0] == "one" {
			n = 1
		} else {
			return nil, fmt.Errorf("%w: invalid count %q", tool.ErrInvalidArguments, fields[0])
		}
	}
	unit := strings.TrimSuffix(fields[1], "s")
	switch unit {
	case "second":
		return func(sign int) time.Time { return now.Add(time.Duration(sign*n) * time.Second) }, nil
	case "minute":
		return func(sign int) time.Time { return now.Add(time.Duration(sign*n) * time.Minute) }, nil
	case "hour":
		return func(sign int) time.Time { return now.Add(time.Duration(sign*n) * time.Hour) }, nil
	case "day":
		return func(sign int) time.Time { return now.AddDate(0, 0, sign*n) }, nil
	case "week":
		return func(sign int) time.Time { return now.AddDate(0, 0, sign*n*7) }, nil
	case "month":
		return func(sign int) time.Time { return now.AddDate(0, sign*n, 0) }, nil
	case "year":
		return func(sign int) time.Time { return now.AddDate(sign*n, 0, 0) }, nil
	}
	return nil, fmt.Errorf("%w: unknown time unit %q", tool.ErrInvalidArguments, fields[1])
}

// parseDayExpression resolves the day/week/month an expression anchors
// to, for boundary forms.
func parseDayExpression(s string, now time.Time) (time.Time, error) {
	switch s {
	case "today", "this day":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	case "this week":
		return now, nil
	case "last week":
		return now.AddDate(0, 0, -7), nil
	case "this month":
		return now, nil
	case "last month":
		return now.AddDate(0, -1, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: could not parse time expression %q", tool.ErrInvalidArguments, s)
}

func startOfPeriod(expr string, t time.Time) time.Time {
	switch {
	case strings.Contains(expr, "week"):
		return startOfWeek(t)
	case strings.Contains(expr, "month"):
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return startOfDay(t)
	}
}

func endOfPeriod(expr string, t time.Time) time.Time {
	switch {
	case strings.Contains(expr, "week"):
		return startOfWeek(t).AddDate(0, 0, 7).Add(-time.Microsecond)
	case strings.Contains(expr, "month"):
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, 1, 0).Add(-time.Microsecond)
	default:
		return startOfDay(t).AddDate(0, 0, 1).Add(-time.Microsecond)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek treats Monday as the first day of the week.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return startOfDay(t.AddDate(0, 0, 1-weekday))
}

func cutPrefix(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest, true
		}
	}
	return s, false
}
