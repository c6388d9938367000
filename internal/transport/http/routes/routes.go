package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/handlers"
	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/middleware"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	Gateway       *middleware.RequestGateway
	RateLimiter   *middleware.RateLimiter
	CsrfGuard     *middleware.CsrfGuard
	Authenticator *middleware.Authenticator
	Metrics       *middleware.HTTPMetrics
	Database      DatabaseChecker
	Cache         CacheChecker

	// Downstream registers the portal's business routes on the protected
	// groups. The gateway owns the security chain, not the content handlers.
	Downstream DownstreamRegistrar

	// Clock overrides the correlation timestamp source in tests.
	Clock func() time.Time
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouteGroups hands the protected route groups to the downstream registrar.
type RouteGroups struct {
	// Public carries the security chain but no authentication.
	Public *gin.RouterGroup
	// Auth carries the stricter login budget for credential endpoints.
	Auth *gin.RouterGroup
	// Authenticated requires a valid bearer principal.
	Authenticated *gin.RouterGroup
	// Admin additionally requires an administrative role.
	Admin *gin.RouterGroup
}

// DownstreamRegistrar attaches content routes behind the security chain.
type DownstreamRegistrar func(groups RouteGroups, auth *middleware.Authenticator)

// Register configures the Gin engine with the security chain and routes.
//
// Chain order matters: correlation first so every rejection carries a request
// ID, then screening, then rate limiting, then CSRF, with authentication and
// RBAC applied per group.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext(deps.Clock))
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}
	if deps.Gateway != nil {
		r.Use(deps.Gateway.Screen())
	}

	healthHandler := handlers.NewHealthHandler()
	if deps.Database != nil {
		healthHandler.WithCheck("database", deps.Database.Ping)
	}
	if deps.Cache != nil {
		healthHandler.WithCheck("redis", deps.Cache.HealthCheck)
	}

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	limits := deps.Config.Security.RateLimit
	identifier := middleware.ProxyAwareIdentifier(deps.Config.Security.ProxyHeaders)

	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       "default",
			Limit:      limits.DefaultMax,
			Window:     limits.DefaultWindow,
			Identifier: identifier,
		}))
	}

	if deps.CsrfGuard != nil {
		csrfHandler := handlers.NewCsrfHandler(deps.CsrfGuard, deps.Logger)
		api.GET("/csrf-token", csrfHandler.Token)
		api.Use(deps.CsrfGuard.EnsureSession())
		api.Use(deps.CsrfGuard.Validate())
	}

	// The contact form gets its own, much stricter budget on top of the
	// default one.
	contact := api.Group("/contact")
	if deps.RateLimiter != nil {
		contact.Use(deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       "contact",
			Limit:      limits.ContactMax,
			Window:     limits.ContactWindow,
			Identifier: identifier,
		}))
	}
	contact.POST("", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, handlers.MessageResponse{Message: "submission received"})
	})

	authGroup := api.Group("/auth")
	if deps.RateLimiter != nil {
		authGroup.Use(deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       "auth",
			Limit:      limits.AuthMax,
			Window:     limits.AuthWindow,
			Identifier: identifier,
		}))
	}

	var authenticated, admin *gin.RouterGroup
	if deps.Authenticator != nil {
		authenticated = api.Group("")
		authenticated.Use(deps.Authenticator.RequireAuth())

		admin = authenticated.Group("/admin")
		admin.Use(deps.Authenticator.RequireAnyPermission(
			domain.PermissionNewsCreate,
			domain.PermissionOfficialManage,
			domain.PermissionDistrictManage,
			domain.PermissionTourismManage,
			domain.PermissionUserManage,
		))
	}

	if deps.Downstream != nil {
		deps.Downstream(RouteGroups{
			Public:        api,
			Auth:          authGroup,
			Authenticated: authenticated,
			Admin:         admin,
		}, deps.Authenticator)
	}

	return r
}
