package models

import "time"

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusAdopted  ListingStatus = "ADOPTED"
	ListingStatusWithdraw ListingStatus = "WITHDRAWN"
)

// Listing is the adoption post a chat room is scoped to. The catalog itself
// (photos, pet details, search) is owned by the listing service; the chat core
// only reads identity, author and title.
type Listing struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AuthorID string        `gorm:"index;type:text;not null" json:"authorId"`
	Author   Member        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title    string        `gorm:"not null" json:"title"`
	PetName  string        `json:"petName"`
	Breed    string        `json:"breed"`
	Status   ListingStatus `gorm:"type:text;default:'ACTIVE'" json:"status"`
}
