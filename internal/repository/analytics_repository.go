package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

type DocumentQueryCount struct {
	Filename   string `json:"filename"`
	QueryCount int64  `json:"query_count"`
}

type QuestionCount struct {
	Question string `json:"question"`
	AskCount int64  `json:"ask_count"`
}

type FeedbackStats struct {
	Total    int64 `json:"total"`
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}

// MostQueriedDocuments counts, per document, how many interactions cited it.
func (r *AnalyticsRepository) MostQueriedDocuments() ([]DocumentQueryCount, error) {
	var rows []DocumentQueryCount
	err := r.db.Model(&model.Document{}).
		Select("documents.filename AS filename, COUNT(usage_links.interaction_id) AS query_count").
		Joins("JOIN usage_links ON usage_links.document_id = documents.id").
		Group("documents.filename").
		Order("query_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query document usage counts failed: %w", err)
	}
	return rows, nil
}

// QueriedDocumentsSince is MostQueriedDocuments restricted to interactions
// newer than the cutoff.
func (r *AnalyticsRepository) QueriedDocumentsSince(cutoff time.Time) ([]DocumentQueryCount, error) {
	var rows []DocumentQueryCount
	err := r.db.Model(&model.Document{}).
		Select("documents.filename AS filename, COUNT(usage_links.interaction_id) AS query_count").
		Joins("JOIN usage_links ON usage_links.document_id = documents.id").
		Joins("JOIN interactions ON interactions.id = usage_links.interaction_id").
		Where("interactions.timestamp >= ?", cutoff).
		Group("documents.filename").
		Order("query_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query weekly document usage failed: %w", err)
	}
	return rows, nil
}

func (r *AnalyticsRepository) TopQuestions(limit int) ([]QuestionCount, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []QuestionCount
	err := r.db.Model(&model.Interaction{}).
		Select("question, COUNT(id) AS ask_count").
		Group("question").
		Order("ask_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query top questions failed: %w", err)
	}
	return rows, nil
}

func (r *AnalyticsRepository) AverageResponseTime() (float64, error) {
	var avg *float64
	err := r.db.Model(&model.Interaction{}).
		Select("AVG(response_time)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("query average response time failed: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *AnalyticsRepository) FeedbackStats() (*FeedbackStats, error) {
	var stats FeedbackStats
	if err := r.db.Model(&model.Feedback{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("count feedback failed: %w", err)
	}
	if err := r.db.Model(&model.Feedback{}).Where("is_positive = ?", true).Count(&stats.Positive).Error; err != nil {
		return nil, fmt.Errorf("count positive feedback failed: %w", err)
	}
	stats.Negative = stats.Total - stats.Positive
	return &stats, nil
}
