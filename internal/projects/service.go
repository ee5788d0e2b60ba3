// Package projects is the project mutation pipeline: validate, authorize,
// narrow, apply, diff and record an audit entry.
//
// Checks run in one order for every operation: gates that depend only on the
// actor (role) first, then existence (not found), then gates that depend on
// the project (write scope).
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"projecthub/internal/apperr"
	"projecthub/internal/database"
	"projecthub/internal/diff"
	"projecthub/internal/models"
	"projecthub/internal/policy"
	"projecthub/internal/validation"
)

// maxAttempts bounds the optimistic-locking retries of one update.
const maxAttempts = 3

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, p *models.Project, expectedVersion int) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f database.ProjectFilter) ([]models.Project, int64, error)
}

type AuditAppender interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// UserDirectory checks member ids against known users.
type UserDirectory interface {
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

type Metrics interface {
	IncMutation(action string)
	IncAuditFailure()
	IncDenied(operation string)
}

type Page struct {
	Items []models.Project
	Total int64
	Page  int
	Size  int
}

type Service struct {
	projects ProjectStore
	audit    AuditAppender
	users    UserDirectory
	metrics  Metrics
	logger   *slog.Logger
}

func NewService(projects ProjectStore, audit AuditAppender, users UserDirectory, metrics Metrics, logger *slog.Logger) *Service {
	return &Service{projects: projects, audit: audit, users: users, metrics: metrics, logger: logger}
}

// Create stores a project owned by the actor. Members submitted by non-admins
// are dropped.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var members []string
	if policy.CanAssignMembers(actor) && len(in.Members) > 0 {
		mi := MembersInput{MemberIDs: in.Members}
		if err := mi.Validate(); err != nil {
			return nil, err
		}
		if err := s.checkMembersExist(ctx, mi.MemberIDs); err != nil {
			return nil, err
		}
		members = mi.MemberIDs
	}

	p := &models.Project{
		Title:   in.Title,
		Client:  in.Client,
		Budget:  *in.Budget,
		Status:  in.Status,
		OwnerID: actor.ID,
	}
	p.SetMemberIDs(members)
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to create project")
	}

	s.metrics.IncMutation(string(models.ActionCreate))
	s.record(ctx, actor, p.ID, models.ActionCreate, in.payload(members))
	return p, nil
}

// Update applies the fields the actor's write scope allows. An update that
// changes nothing writes nothing and records nothing.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, in UpdateInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, "update", func(p *models.Project) error {
		scope := policy.WriteScope(actor, p)
		if scope == policy.ScopeDenied {
			return apperr.Forbidden()
		}
		NarrowToScope(in, scope).applyTo(p)
		return nil
	})
}

// SetMembers replaces the whole member set. Admin only.
func (s *Service) SetMembers(ctx context.Context, actor policy.Actor, id string, in MembersInput) (*models.Project, error) {
	if !policy.CanAssignMembers(actor) {
		s.denied(ctx, actor, "set_members", id)
		return nil, apperr.Forbidden()
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkMembersExist(ctx, in.MemberIDs); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, "set_members", func(p *models.Project) error {
		p.SetMemberIDs(in.MemberIDs)
		return nil
	})
}

// Delete removes a project. Ownership does not grant deletion.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.CanDelete(actor) {
		s.denied(ctx, actor, "delete", id)
		return apperr.Forbidden()
	}
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperr.NotFound("Not found")
		}
		return apperr.Wrap(err, apperr.CodeInternal, "failed to delete project")
	}

	s.metrics.IncMutation(string(models.ActionDelete))
	s.record(ctx, actor, id, models.ActionDelete, map[string]any{"id": id})
	return nil
}

// Get returns a project the actor can see.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (*models.Project, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.VisibilityFor(actor).Allows(p) {
		s.denied(ctx, actor, "get", id)
		return nil, apperr.Forbidden()
	}
	return p, nil
}

// List pages through the projects visible to the actor.
func (s *Service) List(ctx context.Context, actor policy.Actor, q Query) (*Page, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	items, total, err := s.projects.List(ctx, database.ProjectFilter{
		Query:      q.Q,
		Status:     q.Status,
		Visibility: policy.VisibilityFor(actor),
		Offset:     q.offset(),
		Limit:      q.Size,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list projects")
	}
	return &Page{Items: items, Total: total, Page: q.Page, Size: q.Size}, nil
}

// mutate runs read, authorize+apply, diff and a version-checked write. When
// another writer commits in between, the whole cycle is replayed against the
// fresh record so the recorded diff always matches what was replaced.
func (s *Service) mutate(ctx context.Context, actor policy.Actor, id, operation string, apply func(*models.Project) error) (*models.Project, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}

		before := p.Snapshot()
		version := p.Version
		if err := apply(p); err != nil {
			if apperr.CodeOf(err) == apperr.CodeForbidden {
				s.denied(ctx, actor, operation, id)
			}
			return nil, err
		}
		changes := diff.Compute(before, p.Snapshot())
		if changes.Empty() {
			return p, nil
		}

		err = s.projects.Update(ctx, p, version)
		switch {
		case err == nil:
			s.metrics.IncMutation(string(models.ActionUpdate))
			s.record(ctx, actor, p.ID, models.ActionUpdate, changes.Map())
			return p, nil
		case errors.Is(err, database.ErrConflict):
			s.logger.DebugContext(ctx, "project version conflict, retrying",
				"project_id", id, "attempt", attempt)
			continue
		case errors.Is(err, database.ErrNotFound):
			return nil, apperr.NotFound("Not found")
		default:
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to update project")
		}
	}
	return nil, apperr.New(apperr.CodeConflict, "Project was modified concurrently, retry the request")
}

func (s *Service) find(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to load project")
	}
	return p, nil
}

func (s *Service) checkMembersExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.users.MissingIDs(ctx, ids)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to check members")
	}
	if len(missing) > 0 {
		return validation.Field("memberIds", fmt.Sprintf("unknown user ids: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// record appends an audit entry. The project write already happened, so a
// failure here is logged and counted but not returned.
func (s *Service) record(ctx context.Context, actor policy.Actor, projectID string, action models.AuditAction, d map[string]any) {
	entry := &models.AuditLog{ProjectID: projectID, UserID: actor.ID, Action: action, Diff: d}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.metrics.IncAuditFailure()
		s.logger.ErrorContext(ctx, "audit entry lost",
			"error", err,
			"project_id", projectID,
			"action", action,
			"actor_id", actor.ID,
		)
	}
}

func (s *Service) denied(ctx context.Context, actor policy.Actor, operation, projectID string) {
	s.metrics.IncDenied(operation)
	s.logger.WarnContext(ctx, "access denied",
		"operation", operation,
		"project_id", projectID,
		"actor_id", actor.ID,
		"role", actor.Role,
	)
}
