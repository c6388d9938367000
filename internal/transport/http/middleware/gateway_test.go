package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
)

func gatewayTestSettings() config.SecuritySettings {
	return config.SecuritySettings{
		MaxBodyBytes:   1024,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		BlockedUserAgents: []string{
			`(?i)sqlmap`,
			`(?i)nikto`,
			`(?i)curl/`,
		},
		SuspiciousURLPatterns: []string{
			`\.\./`,
			`%2e%2e`,
			`(?i)<script`,
		},
		SQLInjectionPatterns: []string{
			`(?i)union[\s+]+select`,
			`(?i)'[\s]*or[\s]*'`,
		},
		ContentSecurityPolicy: map[string]string{
			"default-src":     "'self'",
			"frame-ancestors": "'none'",
		},
	}
}

func newGatewayRouter(t *testing.T, tlsEnabled bool) *gin.Engine {
	t.Helper()

	gateway, err := NewRequestGateway(gatewayTestSettings(), tlsEnabled, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRequestGateway: %v", err)
	}

	router := gin.New()
	router.Use(gateway.Screen())
	router.Any("/api/v1/resource", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func screen(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGatewayAllowsCleanRequest(t *testing.T) {
	router := newGatewayRouter(t, false)

	rec := screen(router, http.MethodGet, "/api/v1/resource", map[string]string{
		"User-Agent": "portal-web/1.0",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGatewayBlocksScannerUserAgents(t *testing.T) {
	router := newGatewayRouter(t, false)

	for _, agent := range []string{"sqlmap/1.7", "Nikto/2.5", "curl/8.0.1"} {
		rec := screen(router, http.MethodGet, "/api/v1/resource", map[string]string{
			"User-Agent": agent,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("agent %q: status = %d, want 400", agent, rec.Code)
		}
	}
}

func TestGatewayBlocksSuspiciousURLs(t *testing.T) {
	router := newGatewayRouter(t, false)

	targets := []string{
		"/api/v1/resource?file=../../etc/passwd",
		"/api/v1/resource?file=%2e%2e%2fsecret",
		"/api/v1/resource?q=<script>alert(1)</script>",
	}
	for _, target := range targets {
		rec := screen(router, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("target %q: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestGatewayBlocksSQLInjectionQueries(t *testing.T) {
	router := newGatewayRouter(t, false)

	targets := []string{
		"/api/v1/resource?id=1+union+select+password",
		"/api/v1/resource?name='%20or%20'1'='1",
	}
	for _, target := range targets {
		rec := screen(router, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("target %q: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestGatewayRejectsOversizedBodies(t *testing.T) {
	router := newGatewayRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resource", strings.NewReader(strings.Repeat("x", 2048)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestGatewayRejectsDisallowedMethods(t *testing.T) {
	router := newGatewayRouter(t, false)

	rec := screen(router, "TRACE", "/api/v1/resource", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGatewaySecurityHeaders(t *testing.T) {
	router := newGatewayRouter(t, false)

	rec := screen(router, http.MethodGet, "/api/v1/resource", nil)
	headers := rec.Header()

	expectations := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'self'; frame-ancestors 'none'",
	}
	for name, want := range expectations {
		if got := headers.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if headers.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set without TLS")
	}
	if headers.Get("Server") != "" || headers.Get("X-Powered-By") != "" {
		t.Error("implementation headers must be stripped")
	}
}

func TestGatewayHSTSWithTLS(t *testing.T) {
	router := newGatewayRouter(t, true)

	rec := screen(router, http.MethodGet, "/api/v1/resource", nil)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS header when TLS is enabled")
	}
}

func TestGatewayRejectsInvalidPattern(t *testing.T) {
	cfg := gatewayTestSettings()
	cfg.BlockedUserAgents = []string{`([`}

	if _, err := NewRequestGateway(cfg, false, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected an error for an invalid pattern")
	}
}
