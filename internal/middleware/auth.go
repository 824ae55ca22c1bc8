package middleware

import (
	"strings"

	"github.com/classpod/core/internal/pkg/response"
	"github.com/classpod/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	ContextKeyUserID      = "user_id"
	ContextKeyClassroomID = "classroom_id"
)

// SessionAuth enforces a session-purpose token on HTTP endpoints that serve
// end users (the instructor review API). The same tokens that admit a
// realtime connection work here.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := token.Parse(extractToken(c), token.PurposeSession)
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClassroomID, claims.ClassroomID)
		c.Next()
	}
}

// InternalAuth gates the trusted bridge: only internal-purpose tokens pass.
// A session token on this surface is refused outright; trust is delegated
// entirely to possession of a valid short-lived internal token.
func InternalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := token.Parse(extractToken(c), token.PurposeInternal); err != nil {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentClassroomID extracts the token's classroom binding from context.
func CurrentClassroomID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyClassroomID)
	id, _ := v.(string)
	return id
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(t), "bearer ") {
		return strings.TrimSpace(t[7:])
	}
	return t
}
