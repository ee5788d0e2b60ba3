package server

import (
	"context"
	"log/slog"

	"projecthub/internal/audit"
	"projecthub/internal/config"
	"projecthub/internal/database"
	"projecthub/internal/handlers"
	"projecthub/internal/identity"
	"projecthub/internal/metrics"
	"projecthub/internal/projects"
	"projecthub/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// New wires stores, services and handlers on db and returns the router with
// a cleanup func for the resources it opened.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*gin.Engine, func(), error) {
	cleanup := func() {}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = closeLimiter

	projectStore := database.NewProjectStore(db)
	auditStore := database.NewAuditStore(db)
	userStore := database.NewUserStore(db)
	m := metrics.New()

	tokens := identity.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	accounts := identity.NewService(userStore, identity.NewBcryptHasher(), tokens, logger)
	projectSvc := projects.NewService(projectStore, auditStore, userStore, m, logger)
	auditSvc := audit.NewService(auditStore, projectStore, userStore, logger)

	r, err := NewRouter(cfg, Dependencies{
		Auth:     handlers.NewAuthHandler(accounts, logger),
		Projects: handlers.NewProjectHandler(projectSvc, userStore, logger),
		Users:    handlers.NewUserHandler(accounts, logger),
		Audit:    handlers.NewAuditHandler(auditSvc, logger),
		Tokens:   tokens,
		Limiter:  limiter,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return r, cleanup, nil
}

// newLimiter picks Redis when REDIS_URL is set so limits hold across
// instances.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("rate limiter: in-memory", "limit", cfg.RateLimit, "window", cfg.RateWindow)
		return ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow), func() {}, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("rate limiter: redis", "limit", cfg.RateLimit, "window", cfg.RateWindow)
	return ratelimit.NewRedisLimiter(client, cfg.RateLimit, cfg.RateWindow), func() { _ = client.Close() }, nil
}
