// Package audit serves the admin view of the audit trail.
package audit

import (
	"context"
	"log/slog"
	"time"

	"projecthub/internal/apperr"
	"projecthub/internal/database"
	"projecthub/internal/models"
	"projecthub/internal/policy"
)

type EntryStore interface {
	List(ctx context.Context, f database.AuditFilter) ([]models.AuditLog, error)
}

type ProjectTitles interface {
	Titles(ctx context.Context, ids []string) (map[string]string, error)
}

type UserLookup interface {
	ByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type ProjectRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type UserRef struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// Entry is an audit log row with its weak references resolved. Project and
// User stay nil when the referenced row is gone or could not be loaded.
type Entry struct {
	ID        uint               `json:"id"`
	ProjectID string             `json:"projectId"`
	UserID    string             `json:"userId"`
	Action    models.AuditAction `json:"action"`
	Diff      map[string]any     `json:"diff"`
	At        time.Time          `json:"at"`
	Project   *ProjectRef        `json:"project"`
	User      *UserRef           `json:"user"`
}

type Service struct {
	entries  EntryStore
	projects ProjectTitles
	users    UserLookup
	logger   *slog.Logger
}

func NewService(entries EntryStore, projects ProjectTitles, users UserLookup, logger *slog.Logger) *Service {
	return &Service{entries: entries, projects: projects, users: users, logger: logger}
}

// List returns audit entries, newest first. Admin only. Without a limit the
// whole trail is returned.
func (s *Service) List(ctx context.Context, actor policy.Actor, f database.AuditFilter) ([]Entry, error) {
	if !policy.CanReadAudit(actor) {
		return nil, apperr.Forbidden()
	}
	fields := map[string]string{}
	if f.Limit < 0 {
		fields["limit"] = "must not be negative"
	}
	if f.Offset < 0 {
		fields["offset"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	logs, err := s.entries.List(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list audit entries")
	}

	projectIDs := make([]string, 0, len(logs))
	userIDs := make([]string, 0, len(logs))
	for _, l := range logs {
		projectIDs = append(projectIDs, l.ProjectID)
		userIDs = append(userIDs, l.UserID)
	}

	titles, err := s.projects.Titles(ctx, projectIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "resolving audit projects failed", "error", err)
	}
	users, err := s.users.ByIDs(ctx, userIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "resolving audit users failed", "error", err)
	}

	out := make([]Entry, 0, len(logs))
	for _, l := range logs {
		e := Entry{
			ID:        l.ID,
			ProjectID: l.ProjectID,
			UserID:    l.UserID,
			Action:    l.Action,
			Diff:      l.Diff,
			At:        l.At,
		}
		if title, ok := titles[l.ProjectID]; ok {
			e.Project = &ProjectRef{ID: l.ProjectID, Title: title}
		}
		if u, ok := users[l.UserID]; ok {
			e.User = &UserRef{ID: u.ID, Email: u.Email, Role: u.Role}
		}
		out = append(out, e)
	}
	return out, nil
}
