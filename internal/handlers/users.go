package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"projecthub/internal/identity"
	"projecthub/internal/models"
	"projecthub/internal/policy"

	"github.com/gin-gonic/gin"
)

type UserService interface {
	ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error)
	ChangeRole(ctx context.Context, actor policy.Actor, userID string, in identity.RoleInput) (*models.User, error)
	Profile(ctx context.Context, actor policy.Actor) (*models.User, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, in identity.ProfileInput) (*models.User, error)
}

type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), actor(c))
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for i := range users {
		u := toUserResponse(&users[i])
		u.CreatedAt = &users[i].CreatedAt
		items = append(items, u)
	}
	c.JSON(http.StatusOK, itemsResponse[userResponse]{Items: items})
}

func (h *UserHandler) ChangeUserRole(c *gin.Context) {
	var in identity.RoleInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	u, err := h.users.ChangeRole(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// ShowMe handles GET /me.
func (h *UserHandler) ShowMe(c *gin.Context) {
	u, err := h.users.Profile(c.Request.Context(), actor(c))
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(u))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var in identity.ProfileInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), actor(c), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(u))
}
