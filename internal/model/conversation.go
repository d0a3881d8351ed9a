package model

import "time"

// Conversation is the relational record for a multi-turn chat. The message
// transcript itself lives in the conversation state store keyed by ID; this
// row only carries identity and ownership.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
