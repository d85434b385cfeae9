// Package okta is a thin client for the Okta Management API. Every call
// is routed through the shared admission gate, list endpoints surface
// Link-header pagination as gate cursors, and observed rate-limit
// windows are remembered per endpoint so throttled endpoints fail fast
// instead of burning more of the rate budget.
package okta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oktamcp/oktamcp/internal/gate"
	"github.com/oktamcp/oktamcp/internal/observe"
)

const defaultRequestTimeout = 30 * time.Second

// Config holds the connection settings for one Okta org.
type Config struct {
	// OrgURL is the Okta organization URL, e.g. https://acme.okta.com.
	OrgURL string

	// APIToken is an Okta API token (Admin > Security > API > Tokens).
	APIToken string

	// RequestTimeout bounds each HTTP request. Defaults to 30s.
	RequestTimeout time.Duration
}

// Client calls the Okta Management API through the admission gate.
// It is safe for concurrent use.
type Client struct {
	base   *url.URL
	token  string
	httpc  *http.Client
	adm    *gate.Admission
	logger *slog.Logger

	mu         sync.Mutex
	rateLimits map[string]time.Time
	now        func() time.Time
}

// New validates cfg and builds a client. All upstream calls the client
// makes are admitted through adm.
func New(cfg Config, adm *gate.Admission, logger *slog.Logger) (*Client, error) {
	if cfg.OrgURL == "" || cfg.APIToken == "" {
		return nil, ErrNotConfigured
	}
	if !strings.HasPrefix(cfg.OrgURL, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrgURL, cfg.OrgURL)
	}
	base, err := url.Parse(cfg.OrgURL)
	if err != nil {
		return nil, fmt.Errorf("okta: parsing org URL: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:       base,
		token:      cfg.APIToken,
		httpc:      &http.Client{Timeout: cfg.RequestTimeout},
		adm:        adm,
		logger:     logger,
		rateLimits: make(map[string]time.Time),
		now:        time.Now,
	}, nil
}

// page is one decoded result page plus the absolute URL of the next
// page, empty when the Link header carried no rel="next".
type page struct {
	items []gate.Item
	next  string
}

// linkCursor walks Okta's Link-header pagination. It is forward-only
// and must not be advanced concurrently.
type linkCursor struct {
	client   *Client
	endpoint string
	next     string
}

func (c *linkCursor) HasNext() bool { return c != nil && c.next != "" }

func (c *linkCursor) Next(ctx context.Context) ([]gate.Item, error) {
	p, err := c.client.fetchList(ctx, c.endpoint, c.next)
	if err != nil {
		return nil, err
	}
	c.next = p.next
	return p.items, nil
}

// list performs the initial fetch for a list endpoint and wraps the
// result in the canonical normalized form.
func (c *Client) list(ctx context.Context, endpoint, path string, query url.Values) gate.Normalized {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	p, err := c.fetchList(ctx, endpoint, u.String())
	if err != nil {
		return gate.Fail(err)
	}
	var cursor gate.Cursor
	if p.next != "" {
		cursor = &linkCursor{client: c, endpoint: endpoint, next: p.next}
	}
	return gate.Pair(p.items, cursor)
}

// fetchList retrieves one page of a list endpoint through the gate.
func (c *Client) fetchList(ctx context.Context, endpoint, rawURL string) (page, error) {
	return gate.Run(ctx, c.adm, func(ctx context.Context) (page, error) {
		body, header, err := c.do(ctx, endpoint, rawURL)
		if err != nil {
			return page{}, err
		}
		var items []gate.Item
		if err := json.Unmarshal(body, &items); err != nil {
			return page{}, fmt.Errorf("okta: decoding %s page: %w", endpoint, err)
		}
		return page{items: items, next: nextLink(header)}, nil
	})
}

// get retrieves a single object through the gate.
func (c *Client) get(ctx context.Context, endpoint, path string) (gate.Item, error) {
	u := c.base.JoinPath(path)
	return gate.Run(ctx, c.adm, func(ctx context.Context) (gate.Item, error) {
		body, _, err := c.do(ctx, endpoint, u.String())
		if err != nil {
			return nil, err
		}
		var item gate.Item
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, fmt.Errorf("okta: decoding %s object: %w", endpoint, err)
		}
		return item, nil
	})
}

// do performs one authenticated GET. It honors the remembered
// rate-limit window for the endpoint and records a new one on 429.
func (c *Client) do(ctx context.Context, endpoint, rawURL string) (body []byte, header http.Header, err error) {
	defer func() {
		var rle *RateLimitError
		observe.DefaultMetrics().RecordUpstream(ctx, endpoint, err, errors.As(err, &rle))
	}()

	if err := c.checkRateLimit(endpoint); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("okta: building request: %w", err)
	}
	req.Header.Set("Authorization", "SSWS "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "oktamcp")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("okta: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("okta: reading %s response: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		reset := c.recordRateLimit(endpoint, resp.Header)
		c.logger.Warn("okta rate limit hit", "endpoint", endpoint, "reset", reset)
		return nil, nil, &RateLimitError{Endpoint: endpoint, Reset: reset}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, nil, apiErr
	}
	return body, resp.Header, nil
}

// checkRateLimit fails fast when the endpoint's last observed
// rate-limit window has not expired yet.
func (c *Client) checkRateLimit(endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reset, ok := c.rateLimits[endpoint]
	if !ok {
		return nil
	}
	if c.now().After(reset) {
		delete(c.rateLimits, endpoint)
		return nil
	}
	return &RateLimitError{Endpoint: endpoint, Reset: reset}
}

// recordRateLimit remembers the reset time from X-Rate-Limit-Reset
// (epoch seconds). Without the header a short default window applies.
func (c *Client) recordRateLimit(endpoint string, header http.Header) time.Time {
	reset := c.now().Add(10 * time.Second)
	if raw := header.Get("X-Rate-Limit-Reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reset = time.Unix(epoch, 0)
		}
	}
	c.mu.Lock()
	c.rateLimits[endpoint] = reset
	c.mu.Unlock()
	return reset
}

// nextLink extracts the rel="next" URL from Link headers.
func nextLink(header http.Header) string {
	for _, link := range header.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			part = strings.TrimSpace(part)
			if !strings.Contains(part, `rel="next"`) {
				continue
			}
			start := strings.Index(part, "<")
			end := strings.Index(part, ">")
			if start >= 0 && end > start {
				return part[start+1 : end]
			}
		}
	}
	return ""
}
