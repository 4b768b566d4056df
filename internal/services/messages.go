package services

import (
	goerrors "errors"
	"strings"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"gorm.io/gorm"
)

// HistoryEntry is one message as seen by a particular viewer.
//
// ReadByOtherParty for the viewer's own messages reflects the other
// participant's ReadStatus row. Messages sent by the other party are by
// definition already in front of the viewer and are reported as read; the
// stored row for the viewer may still say unread until the next room entry.
// That display shortcut is deliberate and user-visible, so it lives in the
// query and not in the stored state.
type HistoryEntry struct {
	MessageID        int64  `json:"messageId"`
	SenderID         string `json:"senderId"`
	SenderNickname   string `json:"senderNickname"`
	Body             string `json:"body"`
	ReadByOtherParty bool   `json:"readByOtherParty"`
	CreatedAt        int64  `json:"createdAt"`
}

// AppendMessage persists a message and seeds one ReadStatus row per current
// participant as a single transaction; the sender's row is born read. The
// sender must be a current participant of the room.
func AppendMessage(roomID int64, senderMemberID, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.BadRequest("Message body must not be empty")
	}

	if _, err := GetRoom(roomID); err != nil {
		return nil, err
	}
	sender, err := RequireParticipant(senderMemberID, roomID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:        roomID,
		ParticipantID: sender.ID,
		SenderID:      senderMemberID,
		Body:          body,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		var participants []models.Participant
		if err := tx.Where("room_id = ?", roomID).Find(&participants).Error; err != nil {
			return err
		}
		return seedReadStatuses(tx, message, participants, senderMemberID)
	})
	if err != nil {
		return nil, err
	}

	if err := database.DB.Preload("Sender").First(message, "id = ?", message.ID).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// History returns the room's messages in creation order with the viewer's
// read-receipt projection. The viewer must be a participant.
func History(roomID int64, viewerMemberID string) ([]HistoryEntry, error) {
	if _, err := GetRoom(roomID); err != nil {
		return nil, err
	}
	if _, err := RequireParticipant(viewerMemberID, roomID); err != nil {
		return nil, err
	}
	other, err := OtherParticipant(roomID, viewerMemberID)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = database.DB.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// One pass over the other party's rows instead of a query per message.
	var statuses []models.ReadStatus
	err = database.DB.
		Where("room_id = ? AND member_id = ?", roomID, other.ID).
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	otherRead := make(map[int64]bool, len(statuses))
	for _, s := range statuses {
		otherRead[s.MessageID] = s.IsRead
	}

	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		readByOther := true
		if msg.SenderID == viewerMemberID {
			readByOther = otherRead[msg.ID]
		}
		entries = append(entries, HistoryEntry{
			MessageID:        msg.ID,
			SenderID:         msg.SenderID,
			SenderNickname:   msg.Sender.Nickname,
			Body:             msg.Body,
			ReadByOtherParty: readByOther,
			CreatedAt:        msg.CreatedAt.UnixMilli(),
		})
	}
	return entries, nil
}

// LatestMessage returns the newest message of a room by id order, or
// ErrMessageNotFound for a room nothing has been sent to yet.
func LatestMessage(roomID int64) (*models.Message, error) {
	var message models.Message
	err := database.DB.
		Where("room_id = ?", roomID).
		Order("id desc").
		First(&message).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}
