package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// newErrorResponse creates an error response with the request's correlation ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// Authenticator wires bearer authentication and RBAC checks into the router.
type Authenticator struct {
	auth  *usecase.AuthService
	audit *usecase.AuditRecorder
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(auth *usecase.AuthService, audit *usecase.AuditRecorder) *Authenticator {
	return &Authenticator{auth: auth, audit: audit}
}

// RequireAuth resolves the Authorization header to a principal. Every failure
// mode produces the same 401 body so the response cannot be used to probe for
// valid accounts.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthenticated) {
				a.recordDenial(c, nil, domain.AuditOutcomeUnauthenticated)
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "authentication required"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(UserIDKey, principal.ID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = principal.ID
		}

		c.Next()
	}
}

// RequirePermission checks that the authenticated principal holds the
// permission.
func (a *Authenticator) RequirePermission(permission domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if err := a.auth.Authorize(principal, permission); err != nil {
			a.recordDenial(c, principal, domain.AuditOutcomeDenied)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequireAnyPermission checks that the principal holds at least one of the
// permissions.
func (a *Authenticator) RequireAnyPermission(permissions ...domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if err := a.auth.AuthorizeAny(principal, permissions...); err != nil {
			a.recordDenial(c, principal, domain.AuditOutcomeDenied)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequireRole checks that the principal holds one of the named roles exactly.
func (a *Authenticator) RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		a.recordDenial(c, principal, domain.AuditOutcomeDenied)
		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}

// OwnerFunc extracts the owning user's ID for the requested resource.
type OwnerFunc func(*gin.Context) (string, error)

// RequireOwnership checks that the principal owns the requested resource.
// Super admins pass regardless of ownership.
func (a *Authenticator) RequireOwnership(owner OwnerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		ownerID, err := owner(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "could not resolve resource owner"))
			return
		}

		if !principal.OwnsResource(ownerID) {
			a.recordDenial(c, principal, domain.AuditOutcomeDenied)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

func (a *Authenticator) recordDenial(c *gin.Context, principal *domain.Principal, outcome domain.AuditOutcome) {
	if a.audit == nil {
		return
	}

	event := domain.SecurityAuditEvent{
		Action:    c.Request.Method,
		Resource:  c.Request.URL.Path,
		Outcome:   outcome,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata:  map[string]string{"request_id": GetRequestID(c)},
	}
	if principal != nil {
		event.PrincipalID = principal.ID
		event.Metadata["role"] = string(principal.Role)
	}

	a.audit.Record(event)
}

// GetPrincipal retrieves the authenticated principal from the context
func GetPrincipal(c *gin.Context) *domain.Principal {
	if value, exists := c.Get(PrincipalKey); exists {
		if principal, ok := value.(*domain.Principal); ok {
			return principal
		}
	}
	return nil
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}
