package identity

import (
	"context"
	"errors"
	"log/slog"

	"projecthub/internal/apperr"
	"projecthub/internal/database"
	"projecthub/internal/models"
	"projecthub/internal/policy"
	"projecthub/internal/validation"
)

// UserStore is the persistence the account service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, name, company *string) (*models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

type SignupInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN MEMBER"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RoleInput struct {
	Role models.UserRole `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}

type ProfileInput struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=255"`
}

type Session struct {
	Token string
	User  *models.User
}

// Service manages accounts: signup, login, roles and self-service profile.
type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
}

func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to hash password")
	}
	u := &models.User{Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.New(apperr.CodeConflict, "Email already exists")
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to create user")
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login never tells apart an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	invalid := apperr.New(apperr.CodeUnauthorized, "Invalid credentials")

	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to lookup user")
	}
	if !s.hasher.Compare(u.PasswordHash, in.Password) {
		s.logger.WarnContext(ctx, "login failed", "user_id", u.ID)
		return nil, invalid
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to issue token")
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if !policy.CanListUsers(actor) {
		return nil, apperr.Forbidden()
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) ChangeRole(ctx context.Context, actor policy.Actor, userID string, in RoleInput) (*models.User, error) {
	if !policy.CanChangeRole(actor) {
		return nil, apperr.Forbidden()
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.UpdateRole(ctx, userID, in.Role)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to change role")
	}

	s.logger.InfoContext(ctx, "user role changed", "actor_id", actor.ID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) Profile(ctx context.Context, actor policy.Actor) (*models.User, error) {
	u, err := s.users.FindByID(ctx, actor.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to load profile")
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor policy.Actor, in ProfileInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.UpdateProfile(ctx, actor.ID, in.Name, in.Company)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to update profile")
	}
	return u, nil
}
