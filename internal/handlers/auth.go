package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"projecthub/internal/identity"
	"projecthub/internal/middleware"
	"projecthub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Signup(ctx context.Context, in identity.SignupInput) (*models.User, error)
	Login(ctx context.Context, in identity.LoginInput) (*identity.Session, error)
}

type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var in identity.SignupInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	user, err := h.accounts.Signup(c.Request.Context(), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login returns the token and also keeps it in the cookie session so browser
// clients need no Authorization header.
func (h *AuthHandler) Login(c *gin.Context) {
	var in identity.LoginInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	sess, err := h.accounts.Login(c.Request.Context(), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	cookie := sessions.Default(c)
	cookie.Set(middleware.SessionTokenKey, sess.Token)
	if err := cookie.Save(); err != nil {
		h.logger.WarnContext(c.Request.Context(), "saving session cookie failed", "error", err)
	}

	c.JSON(http.StatusOK, loginResponse{Token: sess.Token, User: toUserResponse(sess.User)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	cookie := sessions.Default(c)
	cookie.Clear()
	cookie.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := cookie.Save(); err != nil {
		h.logger.WarnContext(c.Request.Context(), "clearing session cookie failed", "error", err)
	}
	c.Status(http.StatusNoContent)
}
