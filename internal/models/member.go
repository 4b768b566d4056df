package models

import (
	"time"

	"gorm.io/gorm"
)

// Member is the marketplace account as the chat core sees it. Account
// management lives in the identity service; only identity and display
// attributes are consumed here.
type Member struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nickname string `gorm:"not null" json:"nickname"`
	Image    string `json:"image"`
}
