package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"projecthub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Open connects to the database, retrying while the server comes up.
func Open(ctx context.Context, driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= connectAttempts; i++ {
		log.Info("connecting to database", "driver", driver, "attempt", i, "max_attempts", connectAttempts)

		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}
		log.Warn("database connection failed", "error", err)

		if i == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, err)
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
