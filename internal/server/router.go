package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"projecthub/internal/config"
	"projecthub/internal/handlers"
	"projecthub/internal/metrics"
	"projecthub/internal/middleware"
	"projecthub/internal/models"
	"projecthub/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "projecthub_session"

// Dependencies are the wired components the router mounts.
type Dependencies struct {
	Auth     *handlers.AuthHandler
	Projects *handlers.ProjectHandler
	Users    *handlers.UserHandler
	Audit    *handlers.AuditHandler

	Tokens  middleware.TokenVerifier
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func NewRouter(cfg *config.Config, d Dependencies) (*gin.Engine, error) {
	r := gin.New()
	// nil trusts no proxy, so ClientIP is the socket address
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	limited := api.Group("", middleware.RateLimit(d.Limiter, d.Metrics, d.Logger))

	// AUTH
	limited.POST("/auth/signup", d.Auth.Signup)
	limited.POST("/auth/login", d.Auth.Login)
	limited.POST("/auth/logout", d.Auth.Logout)

	authed := limited.Group("", middleware.RequireAuth(d.Tokens, d.Logger))

	// PROJECTS
	authed.GET("/projects", d.Projects.ListProjects)
	authed.POST("/projects", d.Projects.CreateProject)
	authed.GET("/projects/:id", d.Projects.GetProject)
	authed.PATCH("/projects/:id", d.Projects.UpdateProject)
	authed.DELETE("/projects/:id", d.Projects.DeleteProject)
	authed.PATCH("/projects/:id/members", d.Projects.SetProjectMembers)

	// PROFILE
	authed.GET("/me", d.Users.ShowMe)
	authed.PATCH("/me", d.Users.UpdateMe)

	// ADMIN
	admin := authed.Group("", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", d.Users.ListUsers)
	admin.PATCH("/users/:id/role", d.Users.ChangeUserRole)
	admin.GET("/audit", d.Audit.ListAuditLogs)
	admin.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	return r, nil
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}
