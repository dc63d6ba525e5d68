// Package app wires together all dependencies and runs the identity service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/audit"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/auth"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/config"
	handler "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/handler/http"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/password"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/ratelimit"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository/postgres"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/service"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/migrations"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/database"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/health"
	pkgkafka "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/kafka"
)

// App holds the long-lived components of the identity service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresPoolConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	database.RegisterPoolMetrics(pool, "identity")

	// Database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis backs the login failure counters.
	redisClient, err := database.NewRedisClient(ctx, cfg.RedisClientConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisClientConfig().Addr()))

	// Kafka producer; an empty broker list disables event publishing.
	var producer *pkgkafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	policy := password.NewPolicy(cfg.Password.BcryptCost)
	userRepo := postgres.NewUserRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	var publisher audit.EventPublisher
	if producer != nil {
		publisher = producer
	}
	recorder := audit.NewRecorder(auditRepo, publisher, logger)

	limiter := ratelimit.NewLoginLimiter(
		ratelimit.NewRedisStore(redisClient),
		ratelimit.Config{
			MaxFailures: cfg.Lockout.MaxFailures,
			Window:      cfg.Lockout.Window,
		},
		logger,
	)

	authService := service.NewAuthService(userRepo, tokenRepo, policy, jwtManager, recorder, limiter, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(authService, auditRepo, healthHandler, logger, handler.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Environment:    cfg.Env,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: drain in-flight HTTP
// requests, close the Kafka producer, close Redis, close the pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
