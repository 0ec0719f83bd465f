package api

import (
	"rollout/internal/metrics"
	"rollout/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(featureHandler *FeatureHandler, adminHandler *AdminHandler, authHandler *AuthHandler, rdb *redis.Client, requestsPerSecond int, env string) *gin.Engine {
	r := gin.New()

	devMode := env != "prod"

	// Global Middleware
	r.Use(
		middleware.CorsMiddleware(),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
		middleware.TraceMiddleware(),
	)
	r.SetTrustedProxies(nil)

	// Public Routes
	r.GET("/health", featureHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Auth Routes (Public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Auth Routes (Protected)
	authProtected := r.Group("/v1/auth")
	authProtected.Use(middleware.JWTMiddleware(devMode))
	{
		authProtected.GET("/me", authHandler.GetProfile)
		authProtected.POST("/logout", authHandler.Logout)
	}

	// Protected Routes
	protected := r.Group("/v1")
	protected.Use(middleware.JWTMiddleware(devMode))

	// Rate Limiter for Write Operations
	writeLimiter := middleware.RateLimitMiddleware(rdb, requestsPerSecond)

	{
		protected.GET("/features/me", featureHandler.ListMyFeatures)
		protected.PUT("/features/me/:slug", writeLimiter, featureHandler.SetMyFeature)

		protected.GET("/teams/:id/features", featureHandler.ListTeamFeatures)
		protected.PUT("/teams/:id/features/:slug", writeLimiter, featureHandler.SetTeamFeature)

		protected.GET("/organizations/:id/features", featureHandler.ListOrganizationFeatures)
		protected.PUT("/organizations/:id/features/:slug", writeLimiter, featureHandler.SetOrganizationFeature)

		protected.GET("/opt-ins/eligible", featureHandler.EligibleOptIns)
		protected.GET("/opt-ins/:slug", featureHandler.HasOptedIn)
		protected.POST("/opt-ins/:slug", writeLimiter, featureHandler.OptIn)
	}

	// Catalog administration. Authorization beyond authentication is enforced
	// by the deployment in front of this service.
	admin := r.Group("/v1/admin")
	admin.Use(middleware.JWTMiddleware(devMode))
	{
		admin.GET("/features", adminHandler.ListFeatures)
		admin.PUT("/features/:slug", writeLimiter, adminHandler.SaveFeature)
		admin.GET("/audits", adminHandler.ListAudits)
	}

	return r
}
