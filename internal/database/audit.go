package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"projecthub/internal/models"

	"gorm.io/gorm"
)

// AuditStore is a dumb append log: access rules are enforced by callers.
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

type AuditFilter struct {
	ProjectID string
	// Limit of zero returns every entry. Offset is honoured only with a
	// limit, since SQLite has no OFFSET without LIMIT.
	Limit  int
	Offset int
}

func (s *AuditStore) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ProjectID == "" || entry.UserID == "" || entry.Action == "" {
		return errors.New("audit entry requires project, user and action")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *AuditStore) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Order("at DESC").Order("id DESC")
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return logs, nil
}
