package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"projecthub/internal/models"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check user email: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}

	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email = ?", normalizeEmail(email))
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("email ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ByIDs resolves user ids. Unknown ids are absent from the map.
func (s *UserStore) ByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// MissingIDs returns the ids that do not belong to any user, in input order.
func (s *UserStore) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	known, err := s.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	return s.update(ctx, id, map[string]any{"role": string(role)})
}

// UpdateProfile changes only the fields that are non-nil.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, name, company *string) (*models.User, error) {
	changes := map[string]any{}
	if name != nil {
		changes["name"] = *name
	}
	if company != nil {
		changes["company"] = *company
	}
	return s.update(ctx, id, changes)
}

// Upsert creates the user or refreshes password and role of an existing one.
func (s *UserStore) Upsert(ctx context.Context, u *models.User) error {
	existing, err := s.FindByEmail(ctx, u.Email)
	if errors.Is(err, ErrNotFound) {
		return s.Create(ctx, u)
	}
	if err != nil {
		return err
	}
	updated, err := s.update(ctx, existing.ID, map[string]any{
		"password_hash": u.PasswordHash,
		"role":          string(u.Role),
	})
	if err != nil {
		return err
	}
	*u = *updated
	return nil
}

func (s *UserStore) update(ctx context.Context, id string, changes map[string]any) (*models.User, error) {
	if len(changes) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, fmt.Errorf("update user %s: %w", id, res.Error)
		}
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
