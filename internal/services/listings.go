package services

import (
	goerrors "errors"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"gorm.io/gorm"
)

// ResolveListing looks up an adoption listing by id.
func ResolveListing(listingID int64) (*models.Listing, error) {
	var listing models.Listing
	if err := database.DB.First(&listing, "id = ?", listingID).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// ListingForRoom returns the listing a room is scoped to, for the chat
// header. The caller must be a participant.
func ListingForRoom(roomID int64, memberID string) (*models.Listing, error) {
	room, err := GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if _, err := RequireParticipant(memberID, roomID); err != nil {
		return nil, err
	}
	return ResolveListing(room.ListingID)
}
