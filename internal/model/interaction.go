package model

import "time"

// Interaction records one user turn: the question, the answer the agent
// produced, and how long the turn took end to end.
type Interaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:36;index" json:"conversation_id"` // empty for single-shot turns
	Question       string    `gorm:"type:text;not null;index:,length:128" json:"question"`
	Answer         string    `gorm:"type:text;not null" json:"answer"`
	ResponseTime   float64   `gorm:"not null" json:"response_time"`
	Timestamp      time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// UsageLink ties an interaction to one document that grounded its answer.
// The composite primary key keeps a document from being recorded twice for
// the same interaction; UsageOrder is the sequence the agent cited it in.
type UsageLink struct {
	InteractionID  uint     `gorm:"primaryKey" json:"interaction_id"`
	DocumentID     uint     `gorm:"primaryKey" json:"document_id"`
	UsageOrder     int      `gorm:"not null" json:"usage_order"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}
