package handlers

import (
	"errors"
	"io"
	"log/slog"

	"projecthub/internal/apperr"
	"projecthub/internal/httpx"
	"projecthub/internal/middleware"
	"projecthub/internal/policy"

	"github.com/gin-gonic/gin"
)

// renderError writes err as the JSON error envelope. Internal errors are
// logged here since their detail never reaches the client.
func renderError(c *gin.Context, logger *slog.Logger, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
		)
	}
	_ = c.Error(err)
	httpx.Abort(c, err)
}

// bindJSON decodes the request body into dst. Decoding failures are
// validation errors; field rules are checked by the services.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "Request body is required")
		}
		return apperr.Wrap(err, apperr.CodeValidation, "Invalid JSON body")
	}
	return nil
}

// actor is set by RequireAuth on every route that reaches a handler.
func actor(c *gin.Context) policy.Actor {
	a, _ := middleware.CurrentActor(c)
	return a
}
