package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/logger"
	"github.com/wwicak/kom-sabu-sub000/internal/usecase"
)

const (
	rateLimitProblemType  = "https://portal.saburaijua.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"

	// unknownIdentifier keys requests whose client address cannot be
	// determined. They share one bucket instead of bypassing the limiter.
	unknownIdentifier = "unknown"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a fixed-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces per-rule request budgets backed by a shared store.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	audit  *usecase.AuditRecorder
	now    port.Clock
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	RequestID  string `json:"request_id,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: log,
		now:    port.SystemClock,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now port.Clock) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// WithAudit records rate_limited outcomes on the audit trail.
func (rl *RateLimiter) WithAudit(audit *usecase.AuditRecorder) *RateLimiter {
	rl.audit = audit
	return rl
}

// ProxyAwareIdentifier builds an IdentifierFunc that walks the configured
// proxy headers in order and falls back to the socket address. It never
// reports failure; an unresolvable client maps to the shared unknown bucket.
func ProxyAwareIdentifier(proxyHeaders []string) IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		for _, header := range proxyHeaders {
			value := c.GetHeader(header)
			if value == "" {
				continue
			}
			// X-Forwarded-For may carry a chain; the first hop is the client.
			if idx := strings.IndexByte(value, ','); idx >= 0 {
				value = value[:idx]
			}
			value = strings.TrimSpace(value)
			if net.ParseIP(value) != nil {
				return value, true
			}
		}

		if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil && host != "" {
			return host, true
		}
		if ip := c.ClientIP(); ip != "" {
			return ip, true
		}

		return unknownIdentifier, true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules. Every rule
// scopes its counters under its own name, so hitting the contact form never
// consumes budget from the login endpoint.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	filtered := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var headerDecision *domain.RateLimitDecision

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				identifier = unknownIdentifier
			}

			key := fmt.Sprintf("%s:%s", rule.Name, identifier)

			decision, err := rl.store.Check(c.Request.Context(), key, rule.Window, rule.Limit, now)
			if err != nil {
				// Fail closed. A store outage must not disable limiting.
				rl.logger.Error("rate limit store unavailable",
					zap.String("rule", rule.Name),
					zap.String("identifier", logger.MaskIP(identifier)),
					zap.Error(err),
				)
				rl.respondStoreUnavailable(c)
				return
			}

			if headerDecision == nil || shouldReplaceDecision(*headerDecision, decision) {
				snapshot := decision
				headerDecision = &snapshot
			}

			if !decision.Allowed {
				rl.recordRateLimited(c, rule.Name)
				rl.applyHeaders(c, decision)
				rl.respondRateLimited(c, decision)
				return
			}
		}

		if headerDecision != nil {
			rl.applyHeaders(c, *headerDecision)
		}

		c.Next()
	}
}

func shouldReplaceDecision(current, candidate domain.RateLimitDecision) bool {
	if !candidate.Allowed && current.Allowed {
		return true
	}

	if candidate.Allowed == current.Allowed {
		if candidate.Remaining < current.Remaining {
			return true
		}
		if candidate.Remaining == current.Remaining && candidate.ResetTime.Before(current.ResetTime) {
			return true
		}
	}

	return false
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime.Unix(), 10))

	if !decision.Allowed {
		headers.Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
	}
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, decision domain.RateLimitDecision) {
	retrySeconds := decision.RetryAfterSeconds()

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		RetryAfter: retrySeconds,
		RequestID:  GetRequestID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}

func (rl *RateLimiter) recordRateLimited(c *gin.Context, ruleName string) {
	if rl.audit == nil {
		return
	}

	rl.audit.Record(domain.SecurityAuditEvent{
		Action:    c.Request.Method,
		Resource:  c.Request.URL.Path,
		Outcome:   domain.AuditOutcomeRateLimited,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata: map[string]string{
			"rule":       ruleName,
			"request_id": GetRequestID(c),
		},
	})
}

func (rl *RateLimiter) respondStoreUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable,
		newErrorResponse(c, "service temporarily unavailable"))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
