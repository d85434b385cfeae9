package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/oktamcp/oktamcp/internal/audit"
	"github.com/oktamcp/oktamcp/internal/gate"
	"github.com/oktamcp/oktamcp/internal/health"
	"github.com/oktamcp/oktamcp/internal/tool"
)

const testToken = "admin-secret"

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	s, err := NewServer(Config{Bind: "127.0.0.1:0", BearerToken: testToken}, deps, discardLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.startedAt = time.Now()
	return s
}

func doRequest(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewServer_InvalidBind(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Config{Bind: "not-an-addr::::"}, Deps{}, discardLogger()); err == nil {
		t.Fatal("expected error for invalid bind address")
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/status", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_WrongToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/status", "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/status", testToken)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuth_EventsAudited(t *testing.T) {
	t.Parallel()

	var events []audit.Event
	auditor := audit.NewLogger(audit.LoggerConfig{OnEvent: func(e audit.Event) { events = append(events, e) }})

	s := newTestServer(t, Deps{Auditor: auditor})
	router := s.buildRouter()

	doRequest(t, router, http.MethodGet, "/admin/status", "wrong")
	doRequest(t, router, http.MethodGet, "/admin/status", testToken)

	if len(events) != 2 {
		t.Fatalf("got %d audit events, want 2", len(events))
	}
	if events[0].Type != audit.EventAuthFailure || events[1].Type != audit.EventAuthSuccess {
		t.Fatalf("event types = %v, %v", events[0].Type, events[1].Type)
	}
	if events[0].Metadata["path"] != "/admin/status" {
		t.Fatalf("metadata = %v", events[0].Metadata)
	}
}

func TestAdminRoutes_NotMountedWithoutToken(t *testing.T) {
	t.Parallel()

	s, err := NewServer(Config{Bind: "127.0.0.1:0"}, Deps{}, discardLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/status", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHealth_NoMonitor(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("health status = %q", resp.Status)
	}
}

func TestHealth_DegradedUpstream(t *testing.T) {
	t.Parallel()

	m := health.NewMonitor(failingPinger{}, discardLogger(), nil)
	m.Probe(context.Background())

	s := newTestServer(t, Deps{Monitor: m})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" || resp.Upstream == nil || resp.Upstream.Healthy {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMetricsEndpointServed(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestStatus_ReportsGateAndTools(t *testing.T) {
	t.Parallel()

	adm, err := gate.NewAdmission(7, discardLogger())
	if err != nil {
		t.Fatalf("NewAdmission: %v", err)
	}
	registry := tool.NewRegistry()
	if err := registry.Register(tool.Func{
		ToolName:        "probe_tool",
		ToolDescription: "test fixture",
		ToolSchema:      json.RawMessage(`{"type":"object"}`),
		Run: func(context.Context, json.RawMessage) (any, error) {
			return "ok", nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	walker := gate.NewWalker(gate.WalkerConfig{MaxPages: 25, InterPageDelay: 0}, discardLogger())

	s := newTestServer(t, Deps{Admission: adm, Registry: registry, Walker: walker})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/status", testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Gate == nil || resp.Gate.Limit != 7 || resp.Gate.Active != 0 {
		t.Errorf("gate = %+v", resp.Gate)
	}
	if len(resp.Tools) != 1 || resp.Tools[0] != "probe_tool" {
		t.Errorf("tools = %v", resp.Tools)
	}
	if resp.MaxPages != 25 {
		t.Errorf("max_pages = %d", resp.MaxPages)
	}
}

func TestAuditLog_NoStore(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/audit", testToken)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestAuditLog_ReturnsRecentEvents(t *testing.T) {
	t.Parallel()

	store, err := audit.OpenStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	for _, typ := range []audit.EventType{audit.EventToolCall, audit.EventToolResult, audit.EventHealth} {
		if err := store.Insert(audit.Event{Timestamp: time.Now(), Type: typ, Detail: "x"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	s := newTestServer(t, Deps{Store: store})
	router := s.buildRouter()

	rr := doRequest(t, router, http.MethodGet, "/admin/audit", testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var events []audit.Event
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	rr = doRequest(t, router, http.MethodGet, "/admin/audit?type=health", testToken)
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(events) != 1 || events[0].Type != audit.EventHealth {
		t.Fatalf("filtered events = %+v", events)
	}
}

func TestAuditLog_InvalidLimit(t *testing.T) {
	t.Parallel()

	store, err := audit.OpenStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	s := newTestServer(t, Deps{Store: store})
	rr := doRequest(t, s.buildRouter(), http.MethodGet, "/admin/audit?limit=zero", testToken)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRefreshTools(t *testing.T) {
	t.Parallel()

	refreshed := false
	s := newTestServer(t, Deps{
		Registry: tool.NewRegistry(),
		Refresh: func(context.Context) error {
			refreshed = true
			return nil
		},
	})

	rr := doRequest(t, s.buildRouter(), http.MethodPost, "/admin/refresh-tools", testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if !refreshed {
		t.Fatal("refresh hook never invoked")
	}
	if !strings.Contains(rr.Body.String(), `"refreshed"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestRefreshTools_NotSupported(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rr := doRequest(t, s.buildRouter(), http.MethodPost, "/admin/refresh-tools", testToken)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestAuditStream_DeliversEvents(t *testing.T) {
	t.Parallel()

	auditor := audit.NewLogger(audit.LoggerConfig{})
	s := newTestServer(t, Deps{Auditor: auditor})

	srv := httptest.NewServer(s.buildRouter())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws/audit"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + testToken}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The subscription is registered during the handshake, but give the
	// handler a moment to reach its receive loop.
	time.Sleep(50 * time.Millisecond)
	auditor.Log(audit.Event{Type: audit.EventToolCall, ToolName: "list_okta_users", Detail: "invoked"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event audit.Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != audit.EventToolCall || event.ToolName != "list_okta_users" {
		t.Fatalf("event = %+v", event)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return context.DeadlineExceeded
}
