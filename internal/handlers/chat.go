package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/services"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/gin-gonic/gin"
)

// MessageBridge relays accepted messages to every server instance. Set at
// startup; nil in tests that only exercise the synchronous surface.
var MessageBridge services.Bridge

func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func roomIDParam(c *gin.Context) (int64, bool) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room id"})
		return 0, false
	}
	return roomID, true
}

// CreateRoom opens (or dedups to) the chat room between the caller and the
// listing author. The same pair over the same listing always lands in the
// same room.
func CreateRoom(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)

	var req struct {
		TargetID  string `json:"targetId" binding:"required"`
		ListingID int64  `json:"listingId" binding:"required"`
		RoomName  string `json:"roomName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	room, err := services.FindOrCreateRoom(memberID, req.TargetID, req.ListingID, req.RoomName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": gin.H{
		"roomId":    room.ID,
		"roomName":  room.Name,
		"listingId": room.ListingID,
	}})
}

// ListRooms returns the caller's room cards, most recent activity first.
func ListRooms(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)

	cards, err := services.ListRoomCards(memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": cards})
}

// GetRoomCard returns a single room summary for the caller.
func GetRoomCard(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	card, err := services.GetRoomCard(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": card})
}

// EnterRoom is the room-entry event: it returns the backlog and sweeps the
// caller's unread rows in one call.
func EnterRoom(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	history, err := services.History(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	marked, err := services.MarkRoomRead(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": history, "markedRead": marked})
}

// GetMessages returns the room history without touching read state.
func GetMessages(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	history, err := services.History(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// SendMessage appends a message to the ledger and hands it to the fan-out
// bridge. The ledger write is the durable record: a failed broadcast is
// logged and swallowed, reconnecting clients fetch backlog via history.
func SendMessage(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Member-scoped throttle on top of the per-IP limiter; skipped when
	// redis is down rather than blocking sends.
	if database.Redis != nil {
		allowed, err := database.CheckRateLimit("chat_send:"+memberID, 30, time.Minute)
		if err != nil {
			logger.Warn().Err(err).Str("member", memberID).Msg("Rate limit check unavailable, allowing send")
		} else if !allowed {
			respondError(c, errors.ErrRateLimit)
			return
		}
	}

	message, err := services.AppendMessage(roomID, memberID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	if MessageBridge != nil {
		if err := MessageBridge.Publish(c.Request.Context(), services.EventForMessage(message)); err != nil {
			logger.Error().Err(err).Int64("room", roomID).Int64("message", message.ID).
				Msg("Fan-out publish failed, message persisted")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// MarkRead flips the caller's unread rows for the room.
func MarkRead(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	marked, err := services.MarkRoomRead(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markedRead": marked})
}

// GetUnreadCount returns the caller's unread message count for the room.
func GetUnreadCount(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if _, err := services.GetRoom(roomID); err != nil {
		respondError(c, err)
		return
	}
	if _, err := services.RequireParticipant(memberID, roomID); err != nil {
		respondError(c, err)
		return
	}

	count, err := services.UnreadCount(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// GetRoomListing returns the adoption listing shown in the chat header.
// Listings change rarely, so the card is cached briefly when redis is up.
func GetRoomListing(c *gin.Context) {
	memberID := c.MustGet("memberId").(string)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	cacheKey := "chat:room_listing:" + strconv.FormatInt(roomID, 10)
	if database.Redis != nil {
		var cached models.Listing
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			// Authorization still applies on cache hits.
			if _, err := services.RequireParticipant(memberID, roomID); err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"listing": cached})
			return
		}
	}

	listing, err := services.ListingForRoom(roomID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	if database.Redis != nil {
		if err := database.CacheSet(cacheKey, listing, 5*time.Minute); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache room listing")
		}
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}
