package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header carrying the request correlation ID
	RequestIDHeader = "X-Request-ID"
	// TimestampHeader echoes the server receive time back to the client
	TimestampHeader = "X-Timestamp"
	// RequestIDKey is the context key for the request ID
	RequestIDKey = "request_id"
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey = "user_id"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey = "principal"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	RequestID string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext adds a correlation ID and request metadata to each request.
// Inbound X-Request-ID values are honored so upstream proxies can stitch
// traces together.
func EnrichContext(now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Header(TimestampHeader, strconv.FormatInt(now().UTC().Unix(), 10))

		reqCtx := &RequestContext{
			RequestID: requestID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Set("request_context", reqCtx)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get("request_context"); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
