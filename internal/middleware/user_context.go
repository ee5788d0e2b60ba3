package middleware

import (
	"projecthub/internal/policy"

	"github.com/gin-gonic/gin"
)

const actorKey = "CurrentActor"

func SetActor(c *gin.Context, actor policy.Actor) {
	c.Set(actorKey, actor)
}

// CurrentActor returns the actor RequireAuth put on the context.
func CurrentActor(c *gin.Context) (policy.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return policy.Actor{}, false
	}
	actor, ok := v.(policy.Actor)
	return actor, ok
}
