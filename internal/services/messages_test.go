package services

import (
	"testing"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppendMessage_SeedsOneReadStatusPerParticipant(t *testing.T) {
	setupTestDB()
	seedPair(t, "seed_a", "seed_b")
	listingID := seedListing(t, "seed_b", "Seeding listing")
	room, _ := FindOrCreateRoom("seed_a", "seed_b", listingID, "")

	message, err := AppendMessage(room.ID, "seed_a", "hello there")
	assert.NoError(t, err)
	assert.Equal(t, room.ID, message.RoomID)
	assert.Equal(t, "seed_a", message.SenderID)

	var statuses []models.ReadStatus
	database.DB.Where("message_id = ?", message.ID).Find(&statuses)
	assert.Len(t, statuses, 2)

	readByMember := map[string]bool{}
	for _, s := range statuses {
		readByMember[s.MemberID] = s.IsRead
	}
	assert.True(t, readByMember["seed_a"], "sender's row is born read")
	assert.False(t, readByMember["seed_b"], "recipient's row starts unread")
}

func TestAppendMessage_Validation(t *testing.T) {
	setupTestDB()
	seedPair(t, "val_a", "val_b")
	database.DB.Create(&models.Member{ID: "val_outsider", Nickname: "nick_val_outsider"})
	listingID := seedListing(t, "val_b", "Validation listing")
	room, _ := FindOrCreateRoom("val_a", "val_b", listingID, "")

	_, err := AppendMessage(room.ID+9999, "val_a", "hi")
	assert.Equal(t, errors.ErrRoomNotFound, err)

	_, err = AppendMessage(room.ID, "val_outsider", "hi")
	assert.Equal(t, errors.ErrNotAParticipant, err)

	_, err = AppendMessage(room.ID, "val_a", "   ")
	appErr, ok := err.(*errors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 400, appErr.Code)

	// None of the failed sends may leave a message behind
	var count int64
	database.DB.Model(&models.Message{}).Where("room_id = ?", room.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestLatestMessage_EmptyRoom(t *testing.T) {
	setupTestDB()
	seedPair(t, "empty_a", "empty_b")
	listingID := seedListing(t, "empty_b", "Empty listing")
	room, _ := FindOrCreateRoom("empty_a", "empty_b", listingID, "")

	_, err := LatestMessage(room.ID)
	assert.Equal(t, errors.ErrMessageNotFound, err)
}

func TestMarkRoomRead_Idempotent(t *testing.T) {
	setupTestDB()
	seedPair(t, "idem_a", "idem_b")
	listingID := seedListing(t, "idem_b", "Idempotence listing")
	room, _ := FindOrCreateRoom("idem_a", "idem_b", listingID, "")

	_, err := AppendMessage(room.ID, "idem_a", "one")
	assert.NoError(t, err)
	_, err = AppendMessage(room.ID, "idem_a", "two")
	assert.NoError(t, err)

	marked, err := MarkRoomRead(room.ID, "idem_b")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	// Second sweep affects nothing and leaves the flags true
	marked, err = MarkRoomRead(room.ID, "idem_b")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), marked)

	unread, _ := UnreadCount(room.ID, "idem_b")
	assert.Equal(t, int64(0), unread)
}

func TestMarkRoomRead_DoesNotTouchOtherParticipant(t *testing.T) {
	setupTestDB()
	seedPair(t, "iso_a", "iso_b")
	listingID := seedListing(t, "iso_b", "Isolation listing")
	room, _ := FindOrCreateRoom("iso_a", "iso_b", listingID, "")

	// Each side sends one message; each side has one unread row
	AppendMessage(room.ID, "iso_a", "from a")
	AppendMessage(room.ID, "iso_b", "from b")

	unreadA, _ := UnreadCount(room.ID, "iso_a")
	unreadB, _ := UnreadCount(room.ID, "iso_b")
	assert.Equal(t, int64(1), unreadA)
	assert.Equal(t, int64(1), unreadB)

	MarkRoomRead(room.ID, "iso_a")

	unreadA, _ = UnreadCount(room.ID, "iso_a")
	unreadB, _ = UnreadCount(room.ID, "iso_b")
	assert.Equal(t, int64(0), unreadA)
	assert.Equal(t, int64(1), unreadB)
}

func TestHistory_RequiresParticipant(t *testing.T) {
	setupTestDB()
	seedPair(t, "hist_a", "hist_b")
	database.DB.Create(&models.Member{ID: "hist_outsider", Nickname: "nick_hist_outsider"})
	listingID := seedListing(t, "hist_b", "History listing")
	room, _ := FindOrCreateRoom("hist_a", "hist_b", listingID, "")

	_, err := History(room.ID+9999, "hist_a")
	assert.Equal(t, errors.ErrRoomNotFound, err)

	_, err = History(room.ID, "hist_outsider")
	assert.Equal(t, errors.ErrNotAParticipant, err)
}

// Full trace: A (initiator) and B (target) over one listing.
func TestChatTrace_SendEnterRead(t *testing.T) {
	setupTestDB()
	seedPair(t, "trace_a", "trace_b")
	listingID := seedListing(t, "trace_b", "Listing L42")

	room, err := FindOrCreateRoom("trace_a", "trace_b", listingID, "Listing L42")
	assert.NoError(t, err)

	message, err := AppendMessage(room.ID, "trace_a", "hello")
	assert.NoError(t, err)

	// After the send B has exactly one unread row
	unreadB, _ := UnreadCount(room.ID, "trace_b")
	assert.Equal(t, int64(1), unreadB)

	// B's view: the message came from the other party, reported read
	historyB, err := History(room.ID, "trace_b")
	assert.NoError(t, err)
	assert.Len(t, historyB, 1)
	assert.Equal(t, message.ID, historyB[0].MessageID)
	assert.Equal(t, "nick_trace_a", historyB[0].SenderNickname)
	assert.True(t, historyB[0].ReadByOtherParty)

	// A's view before B enters: own message not yet acknowledged
	historyA, _ := History(room.ID, "trace_a")
	assert.Len(t, historyA, 1)
	assert.False(t, historyA[0].ReadByOtherParty)

	// B enters the room
	marked, err := MarkRoomRead(room.ID, "trace_b")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	unreadB, _ = UnreadCount(room.ID, "trace_b")
	assert.Equal(t, int64(0), unreadB)

	// A's view after B entered: acknowledged
	historyA, _ = History(room.ID, "trace_a")
	assert.True(t, historyA[0].ReadByOtherParty)
}
