package services

import (
	goerrors "errors"
	"sort"
	"time"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// RoomCard is the list/summary projection of a room for one viewer.
type RoomCard struct {
	RoomID        int64  `json:"roomId"`
	RoomName      string `json:"roomName"`
	OtherNickname string `json:"otherNickname"`
	LatestMessage string `json:"latestMessage"`
	UnreadCount   int64  `json:"unreadCount"`
	ListingID     int64  `json:"listingId"`
}

// GetRoom fetches a room by id.
func GetRoom(roomID int64) (*models.Room, error) {
	var room models.Room
	if err := database.DB.First(&room, "id = ?", roomID).Error; err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// FindOrCreateRoom returns the OPEN room for the (initiator, target) pair on
// a listing, creating it together with both participant rows when none
// exists. The pair is order-independent for dedup even though the roles
// differ. Two concurrent calls for the same pair+listing resolve to a single
// room: the insert carries a unique (pair_key, listing_id) index, and the
// losing side re-reads the winner instead of surfacing a conflict.
func FindOrCreateRoom(initiatorID, targetID string, listingID int64, proposedName string) (*models.Room, error) {
	if initiatorID == targetID {
		return nil, errors.ErrSelfChat
	}

	if _, err := ResolveMember(initiatorID); err != nil {
		return nil, err
	}
	if _, err := ResolveMember(targetID); err != nil {
		return nil, err
	}
	listing, err := ResolveListing(listingID)
	if err != nil {
		return nil, err
	}

	if room, err := findOpenRoom(initiatorID, targetID, listingID); err != nil {
		return nil, err
	} else if room != nil {
		return room, nil
	}

	name := proposedName
	if name == "" {
		name = listing.Title
	}

	room := &models.Room{
		Name:        name,
		Status:      models.RoomStatusOpen,
		ListingID:   listingID,
		InitiatorID: initiatorID,
		TargetID:    targetID,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		now := time.Now()
		participants := []models.Participant{
			{RoomID: room.ID, MemberID: initiatorID, JoinedAt: now},
			{RoomID: room.ID, MemberID: targetID, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		// A concurrent call may have won the insert. Re-read and hand the
		// winner back; only surface the error if no room materialized.
		if isUniqueViolation(err) {
			logger.Debug().
				Str("pair", models.PairKey(initiatorID, targetID)).
				Int64("listing", listingID).
				Msg("Room insert lost a create race, re-reading winner")
		}
		if winner, findErr := findOpenRoom(initiatorID, targetID, listingID); findErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}

	return room, nil
}

func findOpenRoom(initiatorID, targetID string, listingID int64) (*models.Room, error) {
	var room models.Room
	err := database.DB.
		Where("pair_key = ? AND listing_id = ? AND status = ?",
			models.PairKey(initiatorID, targetID), listingID, models.RoomStatusOpen).
		First(&room).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// isUniqueViolation reports whether an insert failed on a unique index.
// Postgres is classified precisely; other drivers fall through to the
// generic re-read in the caller.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// ListRoomCards returns the viewer's rooms as cards, ordered by most recent
// activity (latest message, falling back to room creation), ties broken by
// room id descending.
func ListRoomCards(memberID string) ([]RoomCard, error) {
	var rooms []models.Room
	err := database.DB.
		Joins("JOIN participants ON participants.room_id = rooms.id").
		Where("participants.member_id = ?", memberID).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	type entry struct {
		card     RoomCard
		activity time.Time
	}
	entries := make([]entry, 0, len(rooms))
	for _, room := range rooms {
		card, err := GetRoomCard(room.ID, memberID)
		if err != nil {
			return nil, err
		}

		activity := room.CreatedAt
		if latest, err := LatestMessage(room.ID); err == nil {
			activity = latest.CreatedAt
		} else if err != errors.ErrMessageNotFound {
			return nil, err
		}
		entries = append(entries, entry{card: *card, activity: activity})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].activity.Equal(entries[j].activity) {
			return entries[i].activity.After(entries[j].activity)
		}
		return entries[i].card.RoomID > entries[j].card.RoomID
	})

	cards := make([]RoomCard, 0, len(entries))
	for _, e := range entries {
		cards = append(cards, e.card)
	}
	return cards, nil
}

// GetRoomCard builds the summary card of one room for one viewer.
func GetRoomCard(roomID int64, memberID string) (*RoomCard, error) {
	room, err := GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	other, err := OtherParticipant(roomID, memberID)
	if err != nil {
		return nil, err
	}

	latestText := ""
	if latest, err := LatestMessage(roomID); err == nil {
		latestText = latest.Body
	} else if err != errors.ErrMessageNotFound {
		return nil, err
	}

	unread, err := UnreadCount(roomID, memberID)
	if err != nil {
		return nil, err
	}

	return &RoomCard{
		RoomID:        room.ID,
		RoomName:      room.Name,
		OtherNickname: other.Nickname,
		LatestMessage: latestText,
		UnreadCount:   unread,
		ListingID:     room.ListingID,
	}, nil
}
