package middleware

import (
	"net/http"
	"strings"

	"consultbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "userID"

// JWTAuthUserMiddleware accepts bearer tokens issued by the identity service and
// stores the subject as the caller's user id.
func JWTAuthUserMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := utils.ExtractIDFromToken(tokenString, secret)
		if err != nil {
			zap.L().Debug("Rejected user token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuthUserMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
