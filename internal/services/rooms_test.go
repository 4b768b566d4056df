package services

import (
	"sync"
	"testing"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB initializes an in-memory SQLite DB shared by the service tests
func setupTestDB() {
	logger.Init("test")
	db, _ := gorm.Open(sqlite.Open("file:services_test?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	database.DB = db
	database.DB.AutoMigrate(
		&models.Member{},
		&models.Listing{},
		&models.Room{},
		&models.Participant{},
		&models.Message{},
		&models.ReadStatus{},
	)
}

func seedPair(t *testing.T, aID, bID string) {
	t.Helper()
	database.DB.Create(&models.Member{ID: aID, Nickname: "nick_" + aID})
	database.DB.Create(&models.Member{ID: bID, Nickname: "nick_" + bID})
}

func seedListing(t *testing.T, authorID, title string) int64 {
	t.Helper()
	listing := models.Listing{AuthorID: authorID, Title: title}
	database.DB.Create(&listing)
	return listing.ID
}

func TestFindOrCreateRoom_SelfChat(t *testing.T) {
	setupTestDB()
	seedPair(t, "self_a", "self_b")
	listingID := seedListing(t, "self_b", "Corgi looking for a home")

	room, err := FindOrCreateRoom("self_a", "self_a", listingID, "")

	assert.Nil(t, room)
	assert.Equal(t, errors.ErrSelfChat, err)

	// No room row may exist for the degenerate pair
	var count int64
	database.DB.Model(&models.Room{}).
		Where("pair_key = ?", models.PairKey("self_a", "self_a")).
		Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestFindOrCreateRoom_CreatesRoomWithBothParticipants(t *testing.T) {
	setupTestDB()
	seedPair(t, "create_a", "create_b")
	listingID := seedListing(t, "create_b", "Shiba pup adoption")

	room, err := FindOrCreateRoom("create_a", "create_b", listingID, "Talk about the shiba")

	assert.NoError(t, err)
	assert.NotNil(t, room)
	assert.Equal(t, "Talk about the shiba", room.Name)
	assert.Equal(t, models.RoomStatusOpen, room.Status)
	assert.Equal(t, models.PairKey("create_a", "create_b"), room.PairKey)

	participants, err := ListParticipants(room.ID)
	assert.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestFindOrCreateRoom_NameFallsBackToListingTitle(t *testing.T) {
	setupTestDB()
	seedPair(t, "fallback_a", "fallback_b")
	listingID := seedListing(t, "fallback_b", "Senior cat seeks quiet home")

	room, err := FindOrCreateRoom("fallback_a", "fallback_b", listingID, "")

	assert.NoError(t, err)
	assert.Equal(t, "Senior cat seeks quiet home", room.Name)
}

func TestFindOrCreateRoom_DedupIsOrderIndependent(t *testing.T) {
	setupTestDB()
	seedPair(t, "dedup_a", "dedup_b")
	listingID := seedListing(t, "dedup_b", "Beagle adoption")

	first, err := FindOrCreateRoom("dedup_a", "dedup_b", listingID, "")
	assert.NoError(t, err)

	// Same pair, reversed roles, same listing: same room, no new participants
	second, err := FindOrCreateRoom("dedup_b", "dedup_a", listingID, "renamed?")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)

	participants, _ := ListParticipants(first.ID)
	assert.Len(t, participants, 2)
}

func TestFindOrCreateRoom_DistinctListingsGetDistinctRooms(t *testing.T) {
	setupTestDB()
	seedPair(t, "multi_a", "multi_b")
	firstListing := seedListing(t, "multi_b", "Listing one")
	secondListing := seedListing(t, "multi_b", "Listing two")

	first, err := FindOrCreateRoom("multi_a", "multi_b", firstListing, "")
	assert.NoError(t, err)
	second, err := FindOrCreateRoom("multi_a", "multi_b", secondListing, "")
	assert.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestFindOrCreateRoom_ConcurrentCallsYieldOneRoom(t *testing.T) {
	setupTestDB()
	seedPair(t, "race_a", "race_b")
	listingID := seedListing(t, "race_b", "Contested corgi")

	var wg sync.WaitGroup
	results := make([]*models.Room, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = FindOrCreateRoom("race_a", "race_b", listingID, "")
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID)

	var count int64
	database.DB.Model(&models.Room{}).
		Where("pair_key = ? AND listing_id = ?", models.PairKey("race_a", "race_b"), listingID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFindOrCreateRoom_UnknownCollaborators(t *testing.T) {
	setupTestDB()
	seedPair(t, "known_a", "known_b")
	listingID := seedListing(t, "known_b", "Real listing")

	_, err := FindOrCreateRoom("known_a", "ghost", listingID, "")
	assert.Equal(t, errors.ErrMemberNotFound, err)

	_, err = FindOrCreateRoom("known_a", "known_b", listingID+9999, "")
	assert.Equal(t, errors.ErrListingNotFound, err)
}

func TestGetRoomCard_Errors(t *testing.T) {
	setupTestDB()
	seedPair(t, "card_a", "card_b")
	database.DB.Create(&models.Member{ID: "card_outsider", Nickname: "nick_outsider"})
	listingID := seedListing(t, "card_b", "Card listing")

	room, err := FindOrCreateRoom("card_a", "card_b", listingID, "")
	assert.NoError(t, err)

	_, err = GetRoomCard(room.ID+9999, "card_a")
	assert.Equal(t, errors.ErrRoomNotFound, err)

	_, err = GetRoomCard(room.ID, "card_outsider")
	assert.Equal(t, errors.ErrNotAParticipant, err)
}

func TestGetRoomCard_FreshRoom(t *testing.T) {
	setupTestDB()
	seedPair(t, "fresh_a", "fresh_b")
	listingID := seedListing(t, "fresh_b", "Fresh listing")

	room, _ := FindOrCreateRoom("fresh_a", "fresh_b", listingID, "")

	card, err := GetRoomCard(room.ID, "fresh_a")
	assert.NoError(t, err)
	assert.Equal(t, room.ID, card.RoomID)
	assert.Equal(t, "nick_fresh_b", card.OtherNickname)
	assert.Equal(t, "", card.LatestMessage)
	assert.Equal(t, int64(0), card.UnreadCount)
}

func TestListRoomCards_OrderedByActivity(t *testing.T) {
	setupTestDB()
	seedPair(t, "order_a", "order_b")
	database.DB.Create(&models.Member{ID: "order_c", Nickname: "nick_order_c"})
	firstListing := seedListing(t, "order_b", "Older conversation")
	secondListing := seedListing(t, "order_c", "Newer conversation")

	older, _ := FindOrCreateRoom("order_a", "order_b", firstListing, "")
	newer, _ := FindOrCreateRoom("order_a", "order_c", secondListing, "")

	_, err := AppendMessage(older.ID, "order_a", "first room message")
	assert.NoError(t, err)
	_, err = AppendMessage(newer.ID, "order_a", "second room message")
	assert.NoError(t, err)

	cards, err := ListRoomCards("order_a")
	assert.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, newer.ID, cards[0].RoomID)
	assert.Equal(t, older.ID, cards[1].RoomID)
	assert.Equal(t, "second room message", cards[0].LatestMessage)
}

func TestOtherParticipant_Defensive(t *testing.T) {
	setupTestDB()
	seedPair(t, "def_a", "def_b")
	listingID := seedListing(t, "def_b", "Defensive listing")

	room, _ := FindOrCreateRoom("def_a", "def_b", listingID, "")

	other, err := OtherParticipant(room.ID, "def_a")
	assert.NoError(t, err)
	assert.Equal(t, "def_b", other.ID)

	// Should not occur given the create invariant, but the registry must
	// fail loudly if the second participant is missing.
	database.DB.Where("room_id = ? AND member_id = ?", room.ID, "def_b").
		Delete(&models.Participant{})

	_, err = OtherParticipant(room.ID, "def_a")
	assert.Equal(t, errors.ErrParticipantNotFound, err)
}
