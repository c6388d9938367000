package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request's
// correlation ID for debugging.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes the readiness payload with per-dependency detail.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// CsrfTokenResponse carries a freshly issued or reused CSRF token.
type CsrfTokenResponse struct {
	CsrfToken string `json:"csrf_token"`
}
