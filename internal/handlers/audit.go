package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"projecthub/internal/apperr"
	"projecthub/internal/audit"
	"projecthub/internal/database"
	"projecthub/internal/policy"

	"github.com/gin-gonic/gin"
)

type AuditService interface {
	List(ctx context.Context, actor policy.Actor, f database.AuditFilter) ([]audit.Entry, error)
}

type AuditHandler struct {
	audit  AuditService
	logger *slog.Logger
}

func NewAuditHandler(audit AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

type auditQuery struct {
	ProjectID string `form:"projectId"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// ListAuditLogs handles GET /audit?projectId=&limit=&offset=
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		renderError(c, h.logger, apperr.Wrap(err, apperr.CodeValidation, "Invalid query"))
		return
	}
	entries, err := h.audit.List(c.Request.Context(), actor(c), database.AuditFilter{ProjectID: q.ProjectID, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		renderError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, itemsResponse[audit.Entry]{Items: entries})
}
