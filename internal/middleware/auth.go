package middleware

import (
	"net/http"
	"strings"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and sets memberId in the context.
// Token issuance happens in the identity service; only validation lives here.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Verify the member exists and is not soft-deleted
		var member models.Member
		if err := database.DB.Select("id").First(&member, "id = ?", claims.MemberID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not found or inactive"})
			c.Abort()
			return
		}

		c.Set("memberId", claims.MemberID)
		c.Next()
	}
}
