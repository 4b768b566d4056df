package handlers

import (
	"net/http"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/services"
	"github.com/gin-gonic/gin"
)

// GetMe returns the authenticated member's own profile.
func GetMe(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)

	member, err := services.ResolveMember(memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}
