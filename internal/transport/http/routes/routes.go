package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/infra/config"
	"github.com/fanarena/voting-service/internal/infra/security"
	"github.com/fanarena/voting-service/internal/transport/http/handlers"
	"github.com/fanarena/voting-service/internal/transport/http/middleware"
	"github.com/fanarena/voting-service/internal/usecase"
)

// AdminRole is the claim role required for period moderation endpoints.
const AdminRole = "admin"

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Votes   *usecase.VoteService
	Points  *usecase.PointsService
	Periods *usecase.PeriodService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Verifier    *security.TokenVerifier
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireVoter(deps.Verifier)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		voteHandler := handlers.NewVoteHandler(deps.Services.Votes, deps.Services.Points)

		voteGroup := api.Group("/vote")
		voteGroup.Use(authMiddleware)

		submitHandlers := append(rateLimitRule(deps, "vote_submit", deps.Config.RateLimit.VoteMaxAttempts), voteHandler.Submit)
		voteGroup.POST("", submitHandlers...)
		voteGroup.GET("", voteHandler.Query)

		bonusHandlers := append(rateLimitRule(deps, "share_bonus", deps.Config.RateLimit.BonusMaxAttempts), voteHandler.ShareBonus)
		voteGroup.POST("/share-bonus", bonusHandlers...)

		adminHandler := handlers.NewAdminHandler(deps.Services.Periods)

		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.RequireRole(AdminRole))
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

// rateLimitRule assembles the per-voter sliding-window limit for a write
// endpoint. Read endpoints stay unthrottled.
func rateLimitRule(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 || deps.Config.RateLimit.WindowDuration <= 0 {
		return nil
	}

	return []gin.HandlerFunc{
		deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     deps.Config.RateLimit.WindowDuration,
			Identifier: middleware.VoterIdentifier(),
		}),
	}
}
