package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/socialstax/backend/internal/infrastructure/auth"
	"github.com/socialstax/backend/internal/infrastructure/config"
	"github.com/socialstax/backend/internal/infrastructure/logger"
	"github.com/socialstax/backend/internal/interfaces/http/handler"
	"github.com/socialstax/backend/internal/interfaces/http/middleware"
)

// Dependencies carries everything the router needs to wire routes
type Dependencies struct {
	Logger     *zap.Logger
	JWTService *auth.JWTService
	HTTP       config.HTTPConfig

	System  *handler.SystemHandler
	Auth    *handler.AuthHandler
	Quota   *handler.QuotaHandler
	Usage   *handler.UsageHandler
	Grant   *handler.GrantHandler
	Reset   *handler.ResetHandler
	Webhook *handler.StripeWebhookHandler
}

// New builds the gin engine with the full middleware chain and all routes
func New(deps Dependencies) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(deps.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(middleware.CORSFromHTTPConfig(deps.HTTP))

	engine.GET("/health", deps.System.Health)
	engine.GET("/ready", deps.System.Ready)

	v1 := engine.Group("/api/v1")

	v1.POST("/auth/login", deps.Auth.Login)
	v1.POST("/auth/refresh", deps.Auth.Refresh)

	// Stripe authenticates by signature, not by bearer token
	v1.POST("/webhooks/stripe", deps.Webhook.Handle)

	authed := v1.Group("", middleware.RequireAuth(deps.JWTService))
	{
		authed.POST("/quota/check", deps.Quota.Check)
		authed.POST("/quota/consume", deps.Quota.Consume)
		authed.POST("/usage/increment", deps.Usage.Increment)
		authed.GET("/usage", deps.Usage.GetUsage)
	}

	admin := v1.Group("/admin", middleware.RequireAuth(deps.JWTService), middleware.RequireAdmin())
	{
		admin.GET("/users/:id/usage", deps.Usage.GetUserUsage)
		admin.GET("/users/:id/grants", deps.Grant.ListForUser)
		admin.POST("/grants", deps.Grant.Create)
		admin.GET("/grants", deps.Grant.List)
		admin.DELETE("/grants/:id", deps.Grant.Revoke)
		admin.POST("/usage/reset", deps.Reset.Trigger)
	}

	return engine, nil
}
