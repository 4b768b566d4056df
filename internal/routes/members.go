package routes

import (
	"github.com/ahwlsqja/dogcatpaw-chat/internal/handlers"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterMemberRoutes(r gin.IRouter) {
	members := r.Group("/members")
	members.Use(middleware.AuthMiddleware())
	{
		members.GET("/me", handlers.GetMe)
	}
}
