package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
)

const (
	// UserIDContextKey is a gin context key for authenticated user identifier.
	UserIDContextKey = "userID"
	// RoleContextKey is a gin context key for the authenticated caller role.
	RoleContextKey = "role"
	authCookieName = "orderflow_token"
)

// TokenParser verifies caller tokens.
type TokenParser interface {
	ParseToken(token string) (model.Principal, error)
}

// AuthRequired ensures user is authenticated before accessing handler.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		principal, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(UserIDContextKey, principal.UserID)
		c.Set(RoleContextKey, principal.Role)
		c.Next()
	}
}

// AdminRequired rejects callers without the admin role. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentPrincipal(c).IsAdmin() {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}

// CurrentPrincipal returns the caller stored by AuthRequired.
func CurrentPrincipal(c *gin.Context) model.Principal {
	var p model.Principal
	if v, ok := c.Get(UserIDContextKey); ok {
		p.UserID, _ = v.(int64)
	}
	if v, ok := c.Get(RoleContextKey); ok {
		p.Role, _ = v.(model.Role)
	}
	return p
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}
