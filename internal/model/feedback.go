package model

import "time"

// Feedback is a thumbs up/down signal, at most one row per interaction.
// Resubmitting replaces the stored polarity (last write wins).
type Feedback struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InteractionID uint      `gorm:"not null;uniqueIndex" json:"interaction_id"`
	IsPositive    bool      `gorm:"not null" json:"is_positive"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
