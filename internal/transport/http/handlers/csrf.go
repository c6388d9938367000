package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/middleware"
)

// CsrfHandler hands out synchronizer tokens to browser clients.
type CsrfHandler struct {
	guard  *middleware.CsrfGuard
	logger *zap.Logger
}

// NewCsrfHandler builds a CsrfHandler.
func NewCsrfHandler(guard *middleware.CsrfGuard, logger *zap.Logger) *CsrfHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CsrfHandler{guard: guard, logger: logger}
}

// Token returns the live token for the caller's session, creating the session
// when it does not exist yet. Safe to call repeatedly from page loads.
func (h *CsrfHandler) Token(c *gin.Context) {
	token, err := h.guard.IssueOrReuse(c)
	if err != nil {
		h.logger.Error("csrf token issuance failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable,
			NewErrorResponse(c, "service temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, CsrfTokenResponse{CsrfToken: token})
}
