package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "OPEN"
	RoomStatusClosed RoomStatus = "CLOSED"
)

// Room is a two-party chat thread scoped to one adoption listing.
//
// PairKey is the order-independent identity of the two members
// ("min:max" of the ids); together with ListingID it carries the unique
// constraint that makes concurrent find-or-create safe: the losing insert
// hits the index, catches the conflict and re-reads the winner.
type Room struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name   string     `gorm:"not null" json:"name"`
	Status RoomStatus `gorm:"type:text;default:'OPEN'" json:"status"`

	ListingID int64   `gorm:"not null;uniqueIndex:idx_rooms_pair_listing,priority:2" json:"listingId"`
	Listing   Listing `gorm:"foreignKey:ListingID" json:"-"`

	// InitiatorID opened the room (the interested adopter), TargetID is the
	// listing author. The roles are distinct but dedup ignores the order.
	InitiatorID string `gorm:"type:text;not null" json:"initiatorId"`
	TargetID    string `gorm:"type:text;not null" json:"targetId"`
	PairKey     string `gorm:"type:text;not null;uniqueIndex:idx_rooms_pair_listing,priority:1" json:"-"`

	// Owning collections are id-indexed; children hold a plain room id
	// foreign key, never a back-pointer.
	Participants []Participant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
	Messages     []Message     `gorm:"foreignKey:RoomID" json:"-"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.PairKey == "" {
		r.PairKey = PairKey(r.InitiatorID, r.TargetID)
	}
	return
}

// PairKey builds the order-independent identity of a member pair.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// Participant is one member's membership record in a room. Exactly two exist
// per room, created as a pair inside the room-creation transaction.
type Participant struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID   int64     `gorm:"not null;uniqueIndex:idx_participants_room_member,priority:1" json:"roomId"`
	MemberID string    `gorm:"type:text;not null;uniqueIndex:idx_participants_room_member,priority:2" json:"memberId"`
	Member   Member    `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// Message belongs to exactly one room and one sending participant. The
// auto-increment id is the canonical order within a room; CreatedAt is the
// secondary, display order.
type Message struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID        int64     `gorm:"index;not null" json:"roomId"`
	ParticipantID int64     `gorm:"not null" json:"participantId"`
	SenderID      string    `gorm:"type:text;not null" json:"senderId"`
	Sender        Member    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReadStatus is the per-message, per-member read flag. One row per
// participant present at send time; the sender's row is born read.
type ReadStatus struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    int64  `gorm:"index;not null" json:"roomId"`
	MessageID int64  `gorm:"not null;uniqueIndex:idx_read_statuses_message_member,priority:1" json:"messageId"`
	MemberID  string `gorm:"type:text;not null;uniqueIndex:idx_read_statuses_message_member,priority:2" json:"memberId"`
	IsRead    bool   `gorm:"default:false" json:"isRead"`
}
