package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/logger"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/security"
	"github.com/wwicak/kom-sabu-sub000/internal/usecase"
)

const (
	csrfSessionIDBytes = 24
	csrfTokenBytes     = 32
)

// CsrfGuard implements the synchronizer token pattern. Tokens live server
// side keyed by an opaque session cookie; clients echo the token back in a
// request header on every mutating call.
type CsrfGuard struct {
	store  port.CsrfTokenStore
	cfg    config.CsrfSettings
	logger *zap.Logger
	audit  *usecase.AuditRecorder
	now    port.Clock
}

// NewCsrfGuard constructs a CsrfGuard.
func NewCsrfGuard(store port.CsrfTokenStore, cfg config.CsrfSettings, log *zap.Logger) *CsrfGuard {
	if log == nil {
		log = zap.NewNop()
	}

	return &CsrfGuard{
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    port.SystemClock,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (g *CsrfGuard) WithClock(now port.Clock) *CsrfGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// WithAudit records csrf_rejected outcomes on the audit trail.
func (g *CsrfGuard) WithAudit(audit *usecase.AuditRecorder) *CsrfGuard {
	g.audit = audit
	return g
}

// IssueOrReuse returns the live token for the request's session, creating a
// new session when none exists. Calling it twice for the same session returns
// the same token, so page reloads do not invalidate open forms.
func (g *CsrfGuard) IssueOrReuse(c *gin.Context) (string, error) {
	now := g.now()

	if cookie, err := c.Cookie(g.cfg.CookieName); err == nil && cookie != "" {
		session, err := g.store.Get(c.Request.Context(), cookie, now)
		if err != nil {
			return "", err
		}
		if session != nil {
			return session.Token, nil
		}
	}

	sessionID, err := security.GenerateSecureToken(csrfSessionIDBytes)
	if err != nil {
		return "", err
	}
	token, err := security.GenerateSecureToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}

	session := domain.CsrfSession{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: now.Add(g.cfg.TokenTTL),
	}
	if err := g.store.Put(c.Request.Context(), session); err != nil {
		return "", err
	}

	g.setCookie(c, sessionID)

	return token, nil
}

// EnsureSession returns a Gin middleware that gives GET responses a session
// cookie when the client does not carry one yet, so browsers have a session
// in place before their first mutating request. Issuance failures are logged
// and ignored; a read must not fail because the token store hiccuped.
func (g *CsrfGuard) EnsureSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			if cookie, err := c.Cookie(g.cfg.CookieName); err != nil || cookie == "" {
				if _, err := g.IssueOrReuse(c); err != nil {
					g.logger.Warn("csrf session issuance failed", zap.Error(err))
				}
			}
		}

		c.Next()
	}
}

// Validate returns a Gin middleware rejecting mutating requests that do not
// present a token matching their session. Safe methods pass through.
func (g *CsrfGuard) Validate() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := g.headerToken(c)
		if token == "" {
			g.recordRejection(c, "missing_token")
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "CSRF token is required"))
			return
		}

		cookie, err := c.Cookie(g.cfg.CookieName)
		if err != nil || cookie == "" {
			g.recordRejection(c, "missing_session")
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "CSRF session not found"))
			return
		}

		session, err := g.store.Get(c.Request.Context(), cookie, g.now())
		if err != nil {
			// Fail closed on store outage.
			g.logger.Error("csrf store unavailable",
				zap.String("session", logger.MaskString(cookie)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				newErrorResponse(c, "service temporarily unavailable"))
			return
		}
		if session == nil {
			g.recordRejection(c, "expired_session")
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "CSRF session not found"))
			return
		}

		if !security.ConstantTimeEquals(session.Token, token) {
			g.recordRejection(c, "token_mismatch")
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "Invalid CSRF token"))
			return
		}

		c.Next()
	}
}

func (g *CsrfGuard) recordRejection(c *gin.Context, reason string) {
	if g.audit == nil {
		return
	}

	g.audit.Record(domain.SecurityAuditEvent{
		Action:    c.Request.Method,
		Resource:  c.Request.URL.Path,
		Outcome:   domain.AuditOutcomeCsrfRejected,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata: map[string]string{
			"reason":     reason,
			"request_id": GetRequestID(c),
		},
	})
}

func (g *CsrfGuard) headerToken(c *gin.Context) string {
	for _, name := range g.cfg.HeaderNames {
		if value := c.GetHeader(name); value != "" {
			return value
		}
	}
	return ""
}

func (g *CsrfGuard) setCookie(c *gin.Context, sessionID string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(g.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
