package middleware

import (
	"github.com/gin-gonic/gin"
)

// ActorKey is the gin context key holding the id of the acting user.
const ActorKey = "actor_id"

// ActorMiddleware extracts the acting user's id from the X-User-ID header.
// Handlers that require an actor reject requests where none was supplied;
// read endpoints do not care.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader("X-User-ID"); actor != "" {
			c.Set(ActorKey, actor)
		}
		c.Next()
	}
}
