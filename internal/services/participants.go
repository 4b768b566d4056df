package services

import (
	goerrors "errors"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"gorm.io/gorm"
)

// IsParticipant reports whether the member belongs to the room.
func IsParticipant(memberID string, roomID int64) (bool, error) {
	var count int64
	err := database.DB.Model(&models.Participant{}).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RequireParticipant is the authorization primitive for everything that acts
// on a room: it returns the membership record or ErrNotAParticipant.
func RequireParticipant(memberID string, roomID int64) (*models.Participant, error) {
	var participant models.Participant
	err := database.DB.
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		First(&participant).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotAParticipant
		}
		return nil, err
	}
	return &participant, nil
}

// OtherParticipant returns the member on the other side of a two-party room.
// The ErrParticipantNotFound branch is defensive; the create invariant
// guarantees a second participant exists.
func OtherParticipant(roomID int64, memberID string) (*models.Member, error) {
	if _, err := RequireParticipant(memberID, roomID); err != nil {
		return nil, err
	}

	var other models.Participant
	err := database.DB.Preload("Member").
		Where("room_id = ? AND member_id <> ?", roomID, memberID).
		First(&other).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrParticipantNotFound
		}
		return nil, err
	}
	return &other.Member, nil
}

// ListParticipants returns every membership record of a room (exactly two
// once a room exists).
func ListParticipants(roomID int64) ([]models.Participant, error) {
	var participants []models.Participant
	err := database.DB.
		Where("room_id = ?", roomID).
		Order("id asc").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}
