package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/ig-lead-funnel/internal/channels/instagram"
	"github.com/wolfman30/ig-lead-funnel/internal/fanout"
	httpmiddleware "github.com/wolfman30/ig-lead-funnel/internal/http/middleware"
	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

const (
	appSecret  = "app_secret"
	adminToken = "admin-secret"
)

type captureSink struct {
	mu    sync.Mutex
	leads []*leads.Lead
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Deliver(_ context.Context, lead *leads.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead)
	return nil
}

type testEnv struct {
	handler http.Handler
	repo    *leads.InMemoryRepository
	sink    *captureSink
	graph   *httptest.Server

	mu      sync.Mutex
	dmCalls int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{repo: leads.NewInMemoryRepository(), sink: &captureSink{}}

	env.graph = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.dmCalls++
		env.mu.Unlock()
		_ = json.NewEncoder(w).Encode(instagram.SendResponse{RecipientID: "999", MessageID: "mid"})
	}))
	t.Cleanup(env.graph.Close)

	logger := logging.Default()
	reg := prometheus.NewRegistry()
	m := metrics.NewFunnelMetrics(reg)

	adapter := instagram.NewAdapter(instagram.AdapterConfig{
		AccessToken:   "token",
		AppSecret:     appSecret,
		VerifyToken:   "verify-me",
		GraphAPIBase:  env.graph.URL,
		PublicBaseURL: "https://leads.example.com",
		DMTimeout:     time.Second,
		Metrics:       m,
		Logger:        logger,
	})

	dispatcher := fanout.NewDispatcher(time.Second, logger, m, env.sink)
	leadsHandler := leads.NewHandler(leads.HandlerConfig{
		Repo:     env.repo,
		Notifier: dispatcher,
		Metrics:  m,
		Logger:   logger,
	})

	env.handler = New(&Config{
		Logger:         logger,
		Instagram:      adapter,
		LeadsHandler:   leadsHandler,
		IntakeLimiter:  httpmiddleware.NewRateLimiter(100, 100),
		AdminToken:     adminToken,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterWebhookVerification(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet,
		"/api/webhooks/meta/instagram?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "12345" {
		t.Fatalf("expected challenge echo, got %d %q", rr.Code, rr.Body.String())
	}

	rr = env.do(httptest.NewRequest(http.MethodGet,
		"/api/webhooks/meta/instagram?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRouterWebhookDelivery(t *testing.T) {
	env := newTestEnv(t)
	body := `{"object":"instagram","entry":[{"id":"17841400000000000","time":1700000000,"changes":[{"field":"comments","value":{"id":"c1","text":"info please","from":{"id":"999","username":"alice"},"media":{"id":"m1"}}}]}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/meta/instagram", strings.NewReader(body))
	req.Header.Set(instagram.SignatureHeader, instagram.NewVerifier(appSecret).Sign([]byte(body)))
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"received":true}` {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	env.mu.Lock()
	calls := env.dmCalls
	env.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one DM, got %d", calls)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/meta/instagram", strings.NewReader(body))
	req.Header.Set(instagram.SignatureHeader, "sha256=deadbeef")
	if rr := env.do(req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRouterIntakeToAdmin(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"fullName": {"Jane Roe"}, "email": {"jane@example.com"}, "igUsername": {"alice"}}
	req := httptest.NewRequest(http.MethodPost, "/api/intake/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := env.do(req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(env.sink.leads) != 1 {
		t.Fatalf("expected fan-out to run once, got %d", len(env.sink.leads))
	}

	if rr := env.do(httptest.NewRequest(http.MethodGet, "/api/admin/leads", nil)); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := env.do(httptest.NewRequest(http.MethodGet, "/api/admin/leads?token=nope", nil)); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rr.Code)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/admin/leads?token="+adminToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list leads.ListLeadsResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Leads[0].Email != "jane@example.com" {
		t.Fatalf("unexpected listing %+v", list)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/admin/leads/"+list.Leads[0].ID+"?token="+adminToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for single lead, got %d", rr.Code)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/admin/leads.csv?token="+adminToken, nil))
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "Created At,Full Name,Email") {
		t.Fatalf("unexpected csv response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouterIntakeRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.handler = New(&Config{
		Logger:        logging.Default(),
		LeadsHandler:  leads.NewHandler(leads.HandlerConfig{Repo: env.repo}),
		IntakeLimiter: httpmiddleware.NewRateLimiter(0.001, 1),
		AdminToken:    adminToken,
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/intake/submit", strings.NewReader("fullName=Jane&email=jane%40example.com"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		codes = append(codes, env.do(req).Code)
	}
	if codes[0] != http.StatusSeeOther || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
