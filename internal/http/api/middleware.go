package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/security"
	"github.com/codebugsleuth/bughunter/internal/store"
)

const contextUserKey = "currentUser"

// authMiddleware validates the bearer token and loads the user into context.
func authMiddleware(users *store.UserStore, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, errFind := users.ByID(c.Request.Context(), claims.UserID)
		if errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// adminMiddleware rejects non-admin users. Must run after authMiddleware.
func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated user loaded by authMiddleware.
func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
