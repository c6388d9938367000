package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
	"github.com/wwicak/kom-sabu-sub000/internal/repository/memory"
	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "portal-gateway", Env: "test"},
		Security: config.SecuritySettings{
			RateLimit: config.RateLimitSettings{
				DefaultWindow: time.Minute,
				DefaultMax:    100,
				AuthWindow:    15 * time.Minute,
				AuthMax:       20,
				ContactWindow: time.Hour,
				ContactMax:    2,
			},
			Csrf: config.CsrfSettings{
				CookieName:  "_csrf_session",
				HeaderNames: []string{"X-CSRF-Token", "CSRF-Token"},
				TokenTTL:    time.Hour,
			},
			MaxBodyBytes:      1024 * 1024,
			AllowedMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			BlockedUserAgents: []string{`(?i)sqlmap`},
			SuspiciousURLPatterns: []string{
				`\.\./`,
			},
			SQLInjectionPatterns: []string{
				`(?i)union[\s+]+select`,
			},
			ProxyHeaders: []string{"X-Forwarded-For"},
		},
	}
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := testConfig()
	log := zaptest.NewLogger(t)

	gateway, err := middleware.NewRequestGateway(cfg.Security, false, log)
	if err != nil {
		t.Fatalf("NewRequestGateway: %v", err)
	}

	return Register(Dependencies{
		Config:      cfg,
		Logger:      log,
		Gateway:     gateway,
		RateLimiter: middleware.NewRateLimiter(memory.NewRateLimitStore(), log),
		CsrfGuard:   middleware.NewCsrfGuard(memory.NewCsrfTokenStore(), cfg.Security.Csrf, log),
		Downstream: func(groups RouteGroups, _ *middleware.Authenticator) {
			groups.Public.GET("/news", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"items": []string{}})
			})
		},
	})
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestEngine(t)

	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rec.Code)
	}
	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("/readyz status = %d", rec.Code)
	}
	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)); rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
}

func TestScreeningRunsBeforeRouting(t *testing.T) {
	router := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	if rec := serve(router, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("scanner UA: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/news?file=../../etc/passwd", nil)
	if rec := serve(router, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("traversal: status = %d, want 400", rec.Code)
	}
}

func TestPublicContentRoute(t *testing.T) {
	router := newTestEngine(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/news", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/v1/news status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected correlation header on content responses")
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected rate limit headers on content responses")
	}
}

func TestCsrfTokenEndpointAndEnforcement(t *testing.T) {
	router := newTestEngine(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/v1/csrf-token status = %d", rec.Code)
	}

	var body struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_csrf_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	// Mutating request without the token is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
	req.AddCookie(cookie)
	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Fatalf("POST without token: status = %d, want 403", rec.Code)
	}

	// With cookie and token it goes through.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
	req.AddCookie(cookie)
	req.Header.Set("X-CSRF-Token", body.Token)
	if rec := serve(router, req); rec.Code != http.StatusAccepted {
		t.Fatalf("POST with token: status = %d, want 202", rec.Code)
	}
}

func TestContactRouteHasStricterBudget(t *testing.T) {
	router := newTestEngine(t)

	// Establish a CSRF session first.
	issue := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil))
	var body struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(issue.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	var cookie *http.Cookie
	for _, c := range issue.Result().Cookies() {
		if c.Name == "_csrf_session" {
			cookie = c
		}
	}

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
		req.RemoteAddr = "198.51.100.7:43210"
		req.AddCookie(cookie)
		req.Header.Set("X-CSRF-Token", body.Token)
		return serve(router, req)
	}

	for i := 0; i < 2; i++ {
		if rec := post(); rec.Code != http.StatusAccepted {
			t.Fatalf("contact %d: status = %d, want 202", i+1, rec.Code)
		}
	}
	if rec := post(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third contact: status = %d, want 429", rec.Code)
	}

	// The general API budget is untouched by the contact bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
	req.RemoteAddr = "198.51.100.7:43210"
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Fatalf("news after contact exhaustion: status = %d, want 200", rec.Code)
	}
}
