package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/domain/shared"
)

const (
	// UserIDHeader carries the authenticated caller's user id, set by the
	// upstream auth proxy
	UserIDHeader = "X-User-ID"

	// UserRoleHeader carries the authenticated caller's role
	UserRoleHeader = "X-User-Role"

	// IdentityKey is the gin context key holding the parsed identity
	IdentityKey = "identity"
)

// Identity middleware parses the caller identity from trusted headers and
// rejects requests without one. Authentication itself happens upstream; this
// service only consumes its verdict.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing or malformed " + UserIDHeader + " header",
				},
			})
			return
		}

		role := shared.Role(c.GetHeader(UserRoleHeader))
		if !shared.ValidRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing or unknown " + UserRoleHeader + " header",
				},
			})
			return
		}

		c.Set(IdentityKey, shared.Identity{ID: userID, Role: role})
		c.Next()
	}
}

// GetIdentity retrieves the caller identity from the gin context
func GetIdentity(c *gin.Context) (shared.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		if identity, ok := v.(shared.Identity); ok {
			return identity, true
		}
	}
	return shared.Identity{}, false
}
