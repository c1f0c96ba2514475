package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/codewithdenise/rentmyvenue/app/db"
	"github.com/codewithdenise/rentmyvenue/app/observability/metrics"
	"github.com/codewithdenise/rentmyvenue/config"
	"github.com/codewithdenise/rentmyvenue/internal/api/auth"
)

// Container holds all server-side application dependencies.
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Metrics     *metrics.AppMetrics
	AuthHandler *auth.AuthHandler
}

// NewContainer initializes and returns a new dependency container.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	appMetrics, err := metrics.Init()
	if err != nil {
		logger.Error("Failed to initialize metrics", slog.Any("error", err))
		return nil, err
	}

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	challenges := auth.NewChallengeStore(cfg.OTP)
	mailer := auth.NewLogMailer(logger)
	authService := auth.NewAuthService(authRepo, challenges, mailer, cfg.JWT, appMetrics, logger)
	authHandler := auth.NewAuthHandler(authService, appMetrics, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Metrics:     appMetrics,
		AuthHandler: authHandler,
	}, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
