package app

import (
	"time"

	"docuchat/internal/repository"
)

// AnalyticsReader is the query surface the analytics service aggregates.
type AnalyticsReader interface {
	MostQueriedDocuments() ([]repository.DocumentQueryCount, error)
	QueriedDocumentsSince(cutoff time.Time) ([]repository.DocumentQueryCount, error)
	TopQuestions(limit int) ([]repository.QuestionCount, error)
	AverageResponseTime() (float64, error)
	FeedbackStats() (*repository.FeedbackStats, error)
}

type DiscardCounter interface {
	Count() (int64, error)
}

const (
	topQuestionsLimit = 10
	recentWindow      = 7 * 24 * time.Hour
)

// Overview is the aggregate usage report of the whole deployment.
type Overview struct {
	MostQueriedDocuments   []repository.DocumentQueryCount `json:"most_queried_documents"`
	RecentlyQueried        []repository.DocumentQueryCount `json:"recently_queried_documents"`
	TopQuestions           []repository.QuestionCount      `json:"top_questions"`
	AverageResponseTime    float64                         `json:"average_response_time"`
	Feedback               repository.FeedbackStats        `json:"feedback"`
	PositiveFeedbackRate   float64                         `json:"positive_feedback_rate"`
	DiscardedCitationCount int64                           `json:"discarded_citation_count"`
}

type AnalyticsService struct {
	analytics AnalyticsReader
	discards  DiscardCounter
}

func NewAnalyticsService(analytics AnalyticsReader, discards DiscardCounter) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, discards: discards}
}

func (s *AnalyticsService) Overview() (*Overview, error) {
	mostQueried, err := s.analytics.MostQueriedDocuments()
	if err != nil {
		return nil, err
	}
	recent, err := s.analytics.QueriedDocumentsSince(time.Now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	questions, err := s.analytics.TopQuestions(topQuestionsLimit)
	if err != nil {
		return nil, err
	}
	avgResponse, err := s.analytics.AverageResponseTime()
	if err != nil {
		return nil, err
	}
	feedback, err := s.analytics.FeedbackStats()
	if err != nil {
		return nil, err
	}
	discarded, err := s.discards.Count()
	if err != nil {
		return nil, err
	}

	var positiveRate float64
	if feedback.Total > 0 {
		positiveRate = float64(feedback.Positive) / float64(feedback.Total)
	}

	return &Overview{
		MostQueriedDocuments:   mostQueried,
		RecentlyQueried:        recent,
		TopQuestions:           questions,
		AverageResponseTime:    avgResponse,
		Feedback:               *feedback,
		PositiveFeedbackRate:   positiveRate,
		DiscardedCitationCount: discarded,
	}, nil
}
