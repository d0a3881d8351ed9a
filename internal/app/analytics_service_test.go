package app

import (
	"testing"
	"time"

	"docuchat/internal/repository"
)

type fakeAnalytics struct {
	stats repository.FeedbackStats
}

func (a *fakeAnalytics) MostQueriedDocuments() ([]repository.DocumentQueryCount, error) {
	return []repository.DocumentQueryCount{{Filename: "report.pdf", QueryCount: 3}}, nil
}

func (a *fakeAnalytics) QueriedDocumentsSince(cutoff time.Time) ([]repository.DocumentQueryCount, error) {
	return nil, nil
}

func (a *fakeAnalytics) TopQuestions(limit int) ([]repository.QuestionCount, error) {
	return []repository.QuestionCount{{Question: "what is in the report?", AskCount: 2}}, nil
}

func (a *fakeAnalytics) AverageResponseTime() (float64, error) {
	return 1.5, nil
}

func (a *fakeAnalytics) FeedbackStats() (*repository.FeedbackStats, error) {
	stats := a.stats
	return &stats, nil
}

type fakeDiscardCounter struct{ n int64 }

func (c *fakeDiscardCounter) Count() (int64, error) { return c.n, nil }

func TestOverview(t *testing.T) {
	svc := NewAnalyticsService(
		&fakeAnalytics{stats: repository.FeedbackStats{Total: 4, Positive: 3, Negative: 1}},
		&fakeDiscardCounter{n: 2},
	)

	overview, err := svc.Overview()
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.PositiveFeedbackRate != 0.75 {
		t.Errorf("positive rate = %v", overview.PositiveFeedbackRate)
	}
	if overview.DiscardedCitationCount != 2 {
		t.Errorf("discard count = %d", overview.DiscardedCitationCount)
	}
	if len(overview.MostQueriedDocuments) != 1 || overview.MostQueriedDocuments[0].QueryCount != 3 {
		t.Errorf("most queried = %+v", overview.MostQueriedDocuments)
	}
}

func TestOverview_NoFeedback(t *testing.T) {
	svc := NewAnalyticsService(&fakeAnalytics{}, &fakeDiscardCounter{})
	overview, err := svc.Overview()
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.PositiveFeedbackRate != 0 {
		t.Errorf("rate with zero feedback = %v", overview.PositiveFeedbackRate)
	}
}
