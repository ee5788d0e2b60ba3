package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"projecthub/internal/config"
	"projecthub/internal/database"
	"projecthub/internal/identity"
	"projecthub/internal/logger"
	"projecthub/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// app is what every subcommand starts from: config, logger and an open
// database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "projecthub",
		Short:         "Multi-tenant project tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		// no subcommand means serve
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			a.logger.Info("schema migrated")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create demo users and sample projects",
		Long: `Upserts admin@demo.com (Admin@123, ADMIN) and member@demo.com
(Member@123, MEMBER), then adds sample projects until there are six.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			return database.Seed(cmd.Context(), a.db, identity.NewBcryptHasher().Hash, a.logger)
		},
	})
	return cmd
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = logger.New(cfg.LogLevel, cfg.LogFormat)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(a.db); err != nil {
		return err
	}

	router, cleanup, err := server.New(ctx, a.cfg, a.db, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", srv.Addr, "env", a.cfg.Env, "db_driver", a.cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
