package routes

import (
	"github.com/ahwlsqja/dogcatpaw-chat/internal/handlers"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterChatRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	// Enforce strict auth for chat even if the parent group is optional
	chat.Use(middleware.AuthMiddleware())
	{
		chat.POST("/rooms", handlers.CreateRoom)
		chat.GET("/rooms", handlers.ListRooms)
		chat.GET("/rooms/:roomId/card", handlers.GetRoomCard)
		chat.POST("/rooms/:roomId/enter", handlers.EnterRoom)
		chat.GET("/rooms/:roomId/messages", handlers.GetMessages)
		chat.POST("/rooms/:roomId/messages", middleware.ChatRateLimit(), handlers.SendMessage)
		chat.POST("/rooms/:roomId/read", handlers.MarkRead)
		chat.GET("/rooms/:roomId/unread", handlers.GetUnreadCount)
		chat.GET("/rooms/:roomId/listing", handlers.GetRoomListing)
	}
}
