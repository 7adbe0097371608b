package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := tokenSvc.Validate(tokenParts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMalformed):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			return
		}

		// A revoked session invalidates its token before expiry
		session, err := sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
		if err != nil || session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
			return
		}
		if session.Handle != claims.Handle {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session user mismatch"})
			return
		}

		c.Set(HandleKey, claims.Handle)
		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}
