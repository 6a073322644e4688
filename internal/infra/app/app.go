package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/infra/config"
	"github.com/fanarena/voting-service/internal/infra/database"
	kafkainfra "github.com/fanarena/voting-service/internal/infra/kafka"
	"github.com/fanarena/voting-service/internal/infra/logger"
	redisinfra "github.com/fanarena/voting-service/internal/infra/redis"
	"github.com/fanarena/voting-service/internal/infra/security"
	"github.com/fanarena/voting-service/internal/infra/telemetry"
	postgresrepo "github.com/fanarena/voting-service/internal/repository/postgres"
	redisrepo "github.com/fanarena/voting-service/internal/repository/redis"
	"github.com/fanarena/voting-service/internal/transport/http/middleware"
	"github.com/fanarena/voting-service/internal/transport/http/routes"
	"github.com/fanarena/voting-service/internal/usecase"
)

// Application wires every layer together and owns the process lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New composes the voting service from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	verifier, err := security.NewTokenVerifier(cfg.Identity.JWTSecret, cfg.Identity.Issuer, cfg.Identity.Audience)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	loc, err := cfg.Voting.Location()
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewVoteAttemptStore(redisClient.Client(), rateLimitWindow)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	resultsService := usecase.NewResultsService(repos.Periods, repos.Votes, repos.Candidates, log)
	periodService := usecase.NewPeriodService(repos.Periods, repos.Votes, repos.Candidates, resultsService, eventPublisher, log)
	pointsService := usecase.NewPointsService(repos.Users, repos.Votes, repos.Seasons, loc, cfg.Voting.BonusPoints, log)
	scorer := usecase.NewSuspicionScorer(loc)
	coordinationService := usecase.NewCoordinationService(
		repos.Audit,
		time.Duration(cfg.Voting.CoordinationWindowMinutes)*time.Minute,
		time.Duration(cfg.Voting.DeviceLookbackHours)*time.Hour,
		log,
	)
	voteService := usecase.NewVoteService(
		repos.Users, repos.Seasons, repos.Votes, repos.Audit,
		periodService, pointsService, resultsService, scorer, coordinationService,
		eventPublisher, cfg.Voting.ChallengeEnabled, log,
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Verifier:    verifier,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Votes:   voteService,
			Points:  pointsService,
			Periods: periodService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting voting API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
