package model

import "time"

// AttributionDiscard records a citation the agent claimed that matched no
// stored document. Written asynchronously by the discard persist worker and
// read by analytics; never surfaced to the chatting user.
type AttributionDiscard struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InteractionID   uint      `gorm:"index" json:"interaction_id"`
	ClaimedFilename string    `gorm:"size:256;not null" json:"claimed_filename"`
	CreatedAt       time.Time `json:"created_at"`
}
