package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"projecthub/internal/apperr"
	"projecthub/internal/models"
	"projecthub/internal/policy"
	"projecthub/internal/projects"

	"github.com/gin-gonic/gin"
)

type ProjectService interface {
	Create(ctx context.Context, actor policy.Actor, in projects.CreateInput) (*models.Project, error)
	Update(ctx context.Context, actor policy.Actor, id string, in projects.UpdateInput) (*models.Project, error)
	SetMembers(ctx context.Context, actor policy.Actor, id string, in projects.MembersInput) (*models.Project, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
	Get(ctx context.Context, actor policy.Actor, id string) (*models.Project, error)
	List(ctx context.Context, actor policy.Actor, q projects.Query) (*projects.Page, error)
}

// UserLookup resolves the users a project references.
type UserLookup interface {
	ByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type ProjectHandler struct {
	projects ProjectService
	users    UserLookup
	logger   *slog.Logger
}

func NewProjectHandler(projects ProjectService, users UserLookup, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, users: users, logger: logger}
}

// render builds responses with owner and member details. Lookup failures
// only cost the details.
func (h *ProjectHandler) render(c *gin.Context, ps []models.Project) []projectResponse {
	var ids []string
	for i := range ps {
		ids = append(ids, ps[i].OwnerID)
		ids = append(ids, ps[i].MemberIDs()...)
	}
	users, err := h.users.ByIDs(c.Request.Context(), ids)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "resolving project users failed", "error", err)
	}

	out := make([]projectResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProjectResponse(&ps[i], users))
	}
	return out
}

func (h *ProjectHandler) renderOne(c *gin.Context, status int, p *models.Project) {
	c.JSON(status, h.render(c, []models.Project{*p})[0])
}

// ListProjects handles GET /projects?q=&status=&page=&size=
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var q projects.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		renderError(c, h.logger, apperr.Wrap(err, apperr.CodeValidation, "Invalid query"))
		return
	}
	page, err := h.projects.List(c.Request.Context(), actor(c), q)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, projectPage{Items: h.render(c, page.Items), Total: page.Total, Page: page.Page, Size: page.Size})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	h.renderOne(c, http.StatusOK, p)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in projects.CreateInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	p, err := h.projects.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	h.renderOne(c, http.StatusCreated, p)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var in projects.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	p, err := h.projects.Update(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	h.renderOne(c, http.StatusOK, p)
}

func (h *ProjectHandler) SetProjectMembers(c *gin.Context) {
	var in projects.MembersInput
	if err := bindJSON(c, &in); err != nil {
		renderError(c, h.logger, err)
		return
	}
	p, err := h.projects.SetMembers(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	h.renderOne(c, http.StatusOK, p)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
