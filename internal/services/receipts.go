package services

import (
	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"gorm.io/gorm"
)

// seedReadStatuses creates one ReadStatus row per participant for a freshly
// persisted message. Runs inside the AppendMessage transaction only, so a
// message can never exist without its read-state rows.
func seedReadStatuses(tx *gorm.DB, message *models.Message, participants []models.Participant, senderMemberID string) error {
	statuses := make([]models.ReadStatus, 0, len(participants))
	for _, p := range participants {
		statuses = append(statuses, models.ReadStatus{
			RoomID:    message.RoomID,
			MessageID: message.ID,
			MemberID:  p.MemberID,
			IsRead:    p.MemberID == senderMemberID,
		})
	}
	return tx.Create(&statuses).Error
}

// MarkRoomRead bulk-flips every unread row of the member in the room to
// read. Idempotent; the returned count is diagnostic, not an error signal.
// Rows seeded after the sweep started are left for the next room entry.
func MarkRoomRead(roomID int64, memberID string) (int64, error) {
	if _, err := GetRoom(roomID); err != nil {
		return 0, err
	}
	if _, err := RequireParticipant(memberID, roomID); err != nil {
		return 0, err
	}

	result := database.DB.Model(&models.ReadStatus{}).
		Where("room_id = ? AND member_id = ? AND is_read = ?", roomID, memberID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.Debug().
			Int64("room", roomID).
			Str("member", memberID).
			Int64("marked", result.RowsAffected).
			Msg("Marked room read")
	}
	return result.RowsAffected, nil
}

// UnreadCount counts the member's unread rows in a room.
func UnreadCount(roomID int64, memberID string) (int64, error) {
	var count int64
	err := database.DB.Model(&models.ReadStatus{}).
		Where("room_id = ? AND member_id = ? AND is_read = ?", roomID, memberID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
