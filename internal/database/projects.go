package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"projecthub/internal/models"
	"projecthub/internal/policy"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ProjectStore struct {
	db *gorm.DB
}

func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// ProjectFilter is the store-level form of a list query.
type ProjectFilter struct {
	Query      string
	Status     models.ProjectStatus
	Visibility policy.Visibility
	Offset     int
	Limit      int
}

func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	if p.Version == 0 {
		p.Version = 1
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(p).Error; err != nil {
			return err
		}
		return replaceMembers(tx, p)
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *ProjectStore) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).Preload("Members").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find project %s: %w", id, err)
	}
	return &p, nil
}

// Update writes p only if the stored version still equals expectedVersion,
// replacing the member set in the same transaction. On success p carries the
// new version. ErrConflict means another writer got there first.
func (s *ProjectStore) Update(ctx context.Context, p *models.Project, expectedVersion int) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND version = ?", p.ID, expectedVersion).
			Updates(map[string]any{
				"title":      p.Title,
				"client":     p.Client,
				"budget":     p.Budget,
				"status":     string(p.Status),
				"version":    expectedVersion + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Project{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}
		return replaceMembers(tx, p)
	})
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = now
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

// List returns one page of matching projects, most recently updated first,
// with the total number of matches.
func (s *ProjectStore) List(ctx context.Context, f ProjectFilter) ([]models.Project, int64, error) {
	scope := s.filterScope(ctx, f)

	var (
		items []models.Project
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Scopes(scope).Count(&total).Error
	})
	g.Go(func() error {
		q := s.db.WithContext(gctx).Scopes(scope).
			Preload("Members").
			Order("updated_at DESC").
			Order("id DESC").
			Offset(f.Offset)
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		return q.Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return items, total, nil
}

// Titles resolves project ids to titles. Unknown ids are absent from the map.
func (s *ProjectStore) Titles(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Project
	if err := s.db.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("resolve project titles: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.Title
	}
	return out, nil
}

func (s *ProjectStore) filterScope(ctx context.Context, f ProjectFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Project{})
		if q := strings.TrimSpace(f.Query); q != "" {
			pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
			db = db.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(client) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		if f.Status != "" {
			db = db.Where("status = ?", string(f.Status))
		}
		if !f.Visibility.All {
			assigned := s.db.WithContext(ctx).
				Model(&models.ProjectMember{}).
				Select("project_id").
				Where("user_id = ?", f.Visibility.ActorID)
			db = db.Where("(owner_id = ? OR id IN (?))", f.Visibility.ActorID, assigned)
		}
		return db
	}
}

func replaceMembers(tx *gorm.DB, p *models.Project) error {
	if err := tx.Where("project_id = ?", p.ID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	if len(p.Members) == 0 {
		return nil
	}
	for i := range p.Members {
		p.Members[i].ProjectID = p.ID
	}
	return tx.Create(&p.Members).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
