package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/logger"
)

// RequestGateway screens every inbound request before it reaches routing or
// business logic. All patterns are compiled once at construction; a rule that
// does not compile is a startup failure, not a silently skipped check.
type RequestGateway struct {
	logger *zap.Logger

	maxBodyBytes   int64
	allowedMethods map[string]struct{}
	blockedAgents  []*regexp.Regexp
	suspiciousURLs []*regexp.Regexp
	sqlInjection   []*regexp.Regexp
	cspHeader      string
	hstsEnabled    bool
}

// NewRequestGateway compiles the configured screening rules.
func NewRequestGateway(cfg config.SecuritySettings, tlsEnabled bool, log *zap.Logger) (*RequestGateway, error) {
	if log == nil {
		log = zap.NewNop()
	}

	blockedAgents, err := compilePatterns("blocked_user_agents", cfg.BlockedUserAgents)
	if err != nil {
		return nil, err
	}
	suspiciousURLs, err := compilePatterns("suspicious_url_patterns", cfg.SuspiciousURLPatterns)
	if err != nil {
		return nil, err
	}
	sqlInjection, err := compilePatterns("sql_injection_patterns", cfg.SQLInjectionPatterns)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedMethods))
	for _, method := range cfg.AllowedMethods {
		allowed[strings.ToUpper(method)] = struct{}{}
	}

	return &RequestGateway{
		logger:         log,
		maxBodyBytes:   cfg.MaxBodyBytes,
		allowedMethods: allowed,
		blockedAgents:  blockedAgents,
		suspiciousURLs: suspiciousURLs,
		sqlInjection:   sqlInjection,
		cspHeader:      buildCSPHeader(cfg.ContentSecurityPolicy),
		hstsEnabled:    tlsEnabled,
	}, nil
}

func compilePatterns(name string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", name, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// buildCSPHeader renders the directive map in deterministic order.
func buildCSPHeader(directives map[string]string) string {
	if len(directives) == 0 {
		return ""
	}

	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+directives[name])
	}
	return strings.Join(parts, "; ")
}

// Screen returns the screening middleware.
func (g *RequestGateway) Screen() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.applySecurityHeaders(c)

		if reason, ok := g.inspect(c); !ok {
			g.reject(c, reason)
			return
		}

		if g.maxBodyBytes > 0 {
			if c.Request.ContentLength > g.maxBodyBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
					newErrorResponse(c, "request body too large"))
				return
			}
			// Guard against lying or absent Content-Length headers too.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, g.maxBodyBytes)
		}

		if len(g.allowedMethods) > 0 {
			if _, ok := g.allowedMethods[c.Request.Method]; !ok {
				c.AbortWithStatusJSON(http.StatusMethodNotAllowed,
					newErrorResponse(c, "method not allowed"))
				return
			}
		}

		c.Next()
	}
}

type rejection struct {
	reason string
	detail string
}

func (g *RequestGateway) inspect(c *gin.Context) (rejection, bool) {
	userAgent := c.Request.UserAgent()
	for _, re := range g.blockedAgents {
		if re.MatchString(userAgent) {
			return rejection{reason: "blocked_user_agent", detail: userAgent}, false
		}
	}

	// Inspect both the raw and decoded forms so encoding cannot hide a
	// traversal or script payload.
	rawURL := c.Request.URL.RequestURI()
	decodedURL := rawURL
	if unescaped, err := url.QueryUnescape(rawURL); err == nil {
		decodedURL = unescaped
	}
	for _, re := range g.suspiciousURLs {
		if re.MatchString(rawURL) || re.MatchString(decodedURL) {
			return rejection{reason: "suspicious_url", detail: rawURL}, false
		}
	}

	query := c.Request.URL.RawQuery
	decodedQuery := query
	if unescaped, err := url.QueryUnescape(query); err == nil {
		decodedQuery = unescaped
	}
	for _, re := range g.sqlInjection {
		if re.MatchString(query) || re.MatchString(decodedQuery) {
			return rejection{reason: "sql_injection", detail: query}, false
		}
	}

	return rejection{}, true
}

func (g *RequestGateway) reject(c *gin.Context, r rejection) {
	g.logger.Warn("request blocked",
		zap.String("reason", r.reason),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", logger.MaskIP(c.ClientIP())),
	)

	c.AbortWithStatusJSON(http.StatusBadRequest,
		newErrorResponse(c, "request rejected"))
}

func (g *RequestGateway) applySecurityHeaders(c *gin.Context) {
	headers := c.Writer.Header()

	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-XSS-Protection", "0")
	headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	headers.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

	if g.cspHeader != "" {
		headers.Set("Content-Security-Policy", g.cspHeader)
	}
	if g.hstsEnabled {
		headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Do not advertise the server implementation.
	headers.Del("Server")
	headers.Del("X-Powered-By")
}
