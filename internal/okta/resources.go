package okta

import (
	"context"
	"net/url"
	"strconv"

	"github.com/oktamcp/oktamcp/internal/gate"
)

// ListParams are the shared filter parameters for user and group list
// endpoints. Search takes priority over Query; Filter is ignored when
// Search is set, mirroring the API's own precedence.
type ListParams struct {
	Query     string
	Search    string
	Filter    string
	SortBy    string
	SortOrder string
	Limit     int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	switch {
	case p.Search != "":
		q.Set("search", p.Search)
		if p.SortBy != "" {
			q.Set("sortBy", p.SortBy)
		}
		if p.SortOrder != "" {
			q.Set("sortOrder", p.SortOrder)
		}
	case p.Query != "":
		q.Set("q", p.Query)
	}
	if p.Filter != "" && p.Search == "" {
		q.Set("filter", p.Filter)
	}
	return q
}

// AppListParams are the filter parameters for the applications list
// endpoint.
type AppListParams struct {
	Q                 string
	Filter            string
	Limit             int
	After             string
	UseOptimization   bool
	IncludeNonDeleted bool
	Expand            string
}

func (p AppListParams) values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Q != "" {
		q.Set("q", p.Q)
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.UseOptimization {
		q.Set("useOptimization", "true")
	}
	if p.IncludeNonDeleted {
		q.Set("includeNonDeleted", "true")
	}
	if p.Expand != "" {
		q.Set("expand", p.Expand)
	}
	return q
}

// LogParams are the filter parameters for the system log endpoint.
type LogParams struct {
	Since     string
	Until     string
	Filter    string
	Query     string
	SortOrder string
	Limit     int
}

func (p LogParams) values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Since != "" {
		q.Set("since", p.Since)
	}
	if p.Until != "" {
		q.Set("until", p.Until)
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.SortOrder != "" {
		q.Set("sortOrder", p.SortOrder)
	}
	return q
}

// ListUsers lists users. One page; the cursor continues from there.
func (c *Client) ListUsers(ctx context.Context, p ListParams) gate.Normalized {
	return c.list(ctx, "users", "/api/v1/users", p.values())
}

// GetUser retrieves one user by ID or login.
func (c *Client) GetUser(ctx context.Context, id string) (gate.Item, error) {
	return c.get(ctx, "users", "/api/v1/users/"+url.PathEscape(id))
}

// ListUserGroups lists the groups a user belongs to.
func (c *Client) ListUserGroups(ctx context.Context, id string) gate.Normalized {
	return c.list(ctx, "users", "/api/v1/users/"+url.PathEscape(id)+"/groups", nil)
}

// ListUserAppLinks lists the application links assigned to a user.
// showAll includes links granted through group membership.
func (c *Client) ListUserAppLinks(ctx context.Context, id string, showAll bool) gate.Normalized {
	q := url.Values{}
	if showAll {
		q.Set("showAll", "true")
	}
	return c.list(ctx, "users", "/api/v1/users/"+url.PathEscape(id)+"/appLinks", q)
}

// ListUserFactors lists a user's enrolled authentication factors.
func (c *Client) ListUserFactors(ctx context.Context, id string) gate.Normalized {
	return c.list(ctx, "users", "/api/v1/users/"+url.PathEscape(id)+"/factors", nil)
}

// ListGroups lists groups.
func (c *Client) ListGroups(ctx context.Context, p ListParams) gate.Normalized {
	return c.list(ctx, "groups", "/api/v1/groups", p.values())
}

// GetGroup retrieves one group.
func (c *Client) GetGroup(ctx context.Context, id string) (gate.Item, error) {
	return c.get(ctx, "groups", "/api/v1/groups/"+url.PathEscape(id))
}

// ListGroupUsers lists the members of a group.
func (c *Client) ListGroupUsers(ctx context.Context, id string, limit int) gate.Normalized {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.list(ctx, "groups", "/api/v1/groups/"+url.PathEscape(id)+"/users", q)
}

// ListApplications lists applications.
func (c *Client) ListApplications(ctx context.Context, p AppListParams) gate.Normalized {
	return c.list(ctx, "apps", "/api/v1/apps", p.values())
}

// GetApplication retrieves one application.
func (c *Client) GetApplication(ctx context.Context, id string) (gate.Item, error) {
	return c.get(ctx, "apps", "/api/v1/apps/"+url.PathEscape(id))
}

// ListApplicationUsers lists the users assigned to an application.
func (c *Client) ListApplicationUsers(ctx context.Context, id string, limit int) gate.Normalized {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.list(ctx, "apps", "/api/v1/apps/"+url.PathEscape(id)+"/users", q)
}

// ListApplicationGroups lists the group assignments of an application.
func (c *Client) ListApplicationGroups(ctx context.Context, id string, limit int) gate.Normalized {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.list(ctx, "apps", "/api/v1/apps/"+url.PathEscape(id)+"/groups", q)
}

// ListPolicyRules lists the rules of a policy.
func (c *Client) ListPolicyRules(ctx context.Context, policyID string) gate.Normalized {
	return c.list(ctx, "policies", "/api/v1/policies/"+url.PathEscape(policyID)+"/rules", nil)
}

// GetPolicyRule retrieves one rule of a policy.
func (c *Client) GetPolicyRule(ctx context.Context, policyID, ruleID string) (gate.Item, error) {
	return c.get(ctx, "policies",
		"/api/v1/policies/"+url.PathEscape(policyID)+"/rules/"+url.PathEscape(ruleID))
}

// ListNetworkZones lists network zones, optionally filtered by type or
// status.
func (c *Client) ListNetworkZones(ctx context.Context, filter string) gate.Normalized {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	return c.list(ctx, "zones", "/api/v1/zones", q)
}

// ListLogEvents lists system log events.
func (c *Client) ListLogEvents(ctx context.Context, p LogParams) gate.Normalized {
	return c.list(ctx, "logs", "/api/v1/logs", p.values())
}

// Ping verifies connectivity and credentials against the org endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "org", "/api/v1/org")
	return err
}
