package middleware

import (
	"log/slog"
	"strings"

	"projecthub/internal/apperr"
	"projecthub/internal/httpx"
	"projecthub/internal/models"
	"projecthub/internal/policy"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionTokenKey is where login stores the issued token in the cookie session.
const SessionTokenKey = "token"

type TokenVerifier interface {
	Verify(token string) (policy.Actor, error)
}

// RequireAuth resolves the actor from an Authorization bearer token, falling
// back to the token kept in the cookie session by login.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if v, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
				token = v
			}
		}
		if token == "" {
			httpx.Abort(c, apperr.New(apperr.CodeUnauthorized, "Missing token"))
			return
		}

		actor, err := verifier.Verify(token)
		if err != nil {
			logger.DebugContext(c.Request.Context(), "token rejected", "error", err, "path", c.FullPath())
			httpx.Abort(c, err)
			return
		}
		SetActor(c, actor)
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			httpx.Abort(c, apperr.New(apperr.CodeUnauthorized, "Missing token"))
			return
		}
		if _, ok := roleSet[actor.Role]; !ok {
			httpx.Abort(c, apperr.Forbidden())
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
