// Package authctx passes the authenticated staff identity through gin.
package authctx

import "github.com/gin-gonic/gin"

const (
	userIDKey = "auth_user_id"
	roleKey   = "auth_role"
)

// Set stores the authenticated identity on the request context.
func Set(c *gin.Context, userID int64, role string) {
	c.Set(userIDKey, userID)
	c.Set(roleKey, role)
}

// UserID returns the authenticated staff user id, or 0 when unauthenticated.
func UserID(c *gin.Context) int64 {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// Role returns the authenticated role, or "" when unauthenticated.
func Role(c *gin.Context) string {
	if v, ok := c.Get(roleKey); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
