package model

import "time"

// Document is the canonical record of an ingested file. Its chunks live in
// the vector index only, keyed by the same filename; the row and its index
// entries are created and removed together.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:256;not null;uniqueIndex" json:"filename"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
