package okta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/oktamcp/oktamcp/internal/gate"
)

// newTestClient builds a client against an httptest server, relaxing
// the https requirement New enforces for real orgs.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	adm, err := gate.NewAdmission(4, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("building admission gate: %v", err)
	}
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	return &Client{
		base:       base,
		token:      "00token",
		httpc:      srv.Client(),
		adm:        adm,
		logger:     slog.New(slog.DiscardHandler),
		rateLimits: make(map[string]time.Time),
		now:        time.Now,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	adm, _ := gate.NewAdmission(1, nil)

	if _, err := New(Config{}, adm, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("empty config: got %v, want ErrNotConfigured", err)
	}
	if _, err := New(Config{OrgURL: "http://acme.okta.com", APIToken: "t"}, adm, nil); !errors.Is(err, ErrInvalidOrgURL) {
		t.Fatalf("plain http org: got %v, want ErrInvalidOrgURL", err)
	}
	c, err := New(Config{OrgURL: "https://acme.okta.com", APIToken: "t"}, adm, nil)
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if c.httpc.Timeout != defaultRequestTimeout {
		t.Fatalf("timeout = %v, want default %v", c.httpc.Timeout, defaultRequestTimeout)
	}
}

func TestListUsers_WalksLinkHeaderPages(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "SSWS 00token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Query().Get("after") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/users?after=p2>; rel="next"`, srv.URL))
			fmt.Fprint(w, `[{"id":"u1"},{"id":"u2"}]`)
		case "p2":
			fmt.Fprint(w, `[{"id":"u3"}]`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	n := c.ListUsers(context.Background(), ListParams{Limit: 2})
	if n.Err != nil {
		t.Fatalf("initial page failed: %v", n.Err)
	}
	if len(n.Items) != 2 {
		t.Fatalf("got %d items on first page, want 2", len(n.Items))
	}
	if n.Cursor == nil || !n.Cursor.HasNext() {
		t.Fatal("expected a live cursor from the Link header")
	}

	w := gate.NewWalker(gate.WalkerConfig{MaxPages: 10, InterPageDelay: 0}, nil)
	got := w.Collect(context.Background(), n)
	if got.Reason != gate.NoMorePages {
		t.Fatalf("reason = %q, want %q", got.Reason, gate.NoMorePages)
	}
	if got.PageCount != 2 || len(got.Items) != 3 {
		t.Fatalf("got %d pages / %d items, want 2 / 3", got.PageCount, len(got.Items))
	}
	if got.Items[2]["id"] != "u3" {
		t.Fatalf("page order lost: %v", got.Items)
	}
}

func TestListUsers_SinglePageHasNoCursor(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"u1"}]`)
	}))
	defer srv.Close()

	n := newTestClient(t, srv).ListUsers(context.Background(), ListParams{})
	if n.Err != nil {
		t.Fatalf("list failed: %v", n.Err)
	}
	if n.Cursor != nil {
		t.Fatal("cursor present without a rel=next link")
	}
}

func TestGetUser_DecodesObject(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/u1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"u1","status":"ACTIVE"}`)
	}))
	defer srv.Close()

	item, err := newTestClient(t, srv).GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if item["status"] != "ACTIVE" {
		t.Fatalf("object not decoded: %v", item)
	}
}

func TestDo_APIErrorDecoded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"errorCode":    "E0000007",
			"errorSummary": "Not found: u-missing",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetUser(context.Background(), "u-missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "E0000007" {
		t.Fatalf("error body lost: %+v", apiErr)
	}
}

func TestDo_RateLimitRemembersWindow(t *testing.T) {
	t.Parallel()

	var calls int
	reset := time.Now().Add(30 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-Rate-Limit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	n := c.ListUsers(context.Background(), ListParams{})
	var rlErr *RateLimitError
	if !errors.As(n.Err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", n.Err)
	}
	if !gate.IsRateLimited(n.Err) {
		t.Fatalf("rate-limit error not classifiable: %v", n.Err)
	}
	if rlErr.Reset.Unix() != reset {
		t.Fatalf("reset = %v, want epoch %d", rlErr.Reset, reset)
	}

	// The second call must fail fast inside the remembered window
	// without reaching the server.
	n = c.ListUsers(context.Background(), ListParams{})
	if !errors.As(n.Err, &rlErr) {
		t.Fatalf("expected fail-fast RateLimitError, got %v", n.Err)
	}
	if calls != 1 {
		t.Fatalf("server hit %d times, want 1", calls)
	}

	// Other endpoints are unaffected.
	if err := c.checkRateLimit("groups"); err != nil {
		t.Fatalf("unrelated endpoint throttled: %v", err)
	}
}

func TestCheckRateLimit_WindowExpires(t *testing.T) {
	t.Parallel()

	c := &Client{rateLimits: map[string]time.Time{"users": time.Now().Add(-time.Second)}, now: time.Now}
	if err := c.checkRateLimit("users"); err != nil {
		t.Fatalf("expired window must clear: %v", err)
	}
	if _, ok := c.rateLimits["users"]; ok {
		t.Fatal("expired window not forgotten")
	}
}

func TestNextLink(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Add("Link", `<https://acme.okta.com/api/v1/users?after=x>; rel="self"`)
	h.Add("Link", `<https://acme.okta.com/api/v1/users?after=y>; rel="next"`)
	if got := nextLink(h); got != "https://acme.okta.com/api/v1/users?after=y" {
		t.Fatalf("nextLink = %q", got)
	}

	h = http.Header{}
	h.Add("Link", `<https://acme.okta.com/api/v1/users?after=a>; rel="self", <https://acme.okta.com/api/v1/users?after=b>; rel="next"`)
	if got := nextLink(h); got != "https://acme.okta.com/api/v1/users?after=b" {
		t.Fatalf("combined header: nextLink = %q", got)
	}

	if got := nextLink(http.Header{}); got != "" {
		t.Fatalf("empty header: nextLink = %q", got)
	}
}

func TestListParams_SearchWinsOverQuery(t *testing.T) {
	t.Parallel()

	v := ListParams{Query: "ann", Search: `profile.lastName eq "Doe"`, Filter: `status eq "ACTIVE"`, Limit: 25}.values()
	if v.Get("q") != "" {
		t.Fatalf("q must be dropped when search is set: %v", v)
	}
	if v.Get("search") == "" || v.Get("filter") != "" {
		t.Fatalf("search precedence broken: %v", v)
	}
	if v.Get("limit") != "25" {
		t.Fatalf("limit = %q", v.Get("limit"))
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/org" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"org1"}`)
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
