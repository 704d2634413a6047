// Package dashboard aggregates CRM activity into the figures the frontend
// charts: headline counts, campaign breakdowns, dispatch volume over time
// and reply sentiment.
package dashboard

import (
	"context"

	"posvenda.org/internal/crm"
)

// Overview is the headline block of the dashboard.
type Overview struct {
	Counts          crm.Counts `json:"counts"`
	ResponseRate    float64    `json:"response_rate"`
	SatisfactionPct float64    `json:"satisfaction_pct"`
}

// SentimentBreakdown pairs raw sentiment counts with their share of all
// replies.
type SentimentBreakdown struct {
	Counts      crm.SentimentCounts `json:"counts"`
	PositivePct float64             `json:"positive_pct"`
	NeutralPct  float64             `json:"neutral_pct"`
	NegativePct float64             `json:"negative_pct"`
}

// Service computes dashboard views from the CRM metrics store.
type Service struct {
	metrics crm.MetricsStore
}

// NewService constructs the dashboard service.
func NewService(metrics crm.MetricsStore) *Service {
	return &Service{metrics: metrics}
}

// Overview returns the tenant's headline numbers. ResponseRate is replies
// over dispatches; SatisfactionPct is positive replies over all replies.
// Both are zero when the denominator is zero.
func (s *Service) Overview(ctx context.Context, tenantID string) (Overview, error) {
	counts, err := s.metrics.Counts(ctx, tenantID)
	if err != nil {
		return Overview{}, err
	}
	o := Overview{Counts: counts}
	if counts.Dispatches > 0 {
		o.ResponseRate = float64(counts.Replies) / float64(counts.Dispatches)
	}
	if counts.Replies > 0 {
		sc, err := s.metrics.SentimentCounts(ctx, tenantID)
		if err != nil {
			return Overview{}, err
		}
		o.SatisfactionPct = 100 * float64(sc.Positive) / float64(counts.Replies)
	}
	return o, nil
}

// CampaignsByStatus returns how many campaigns sit in each status.
func (s *Service) CampaignsByStatus(ctx context.Context, tenantID string) (map[crm.CampaignStatus]int, error) {
	return s.metrics.CampaignsByStatus(ctx, tenantID)
}

// DispatchesPerDay returns the daily dispatch series for the trailing window.
func (s *Service) DispatchesPerDay(ctx context.Context, tenantID string, days int) ([]crm.DayCount, error) {
	if days < 1 || days > 90 {
		days = 7
	}
	return s.metrics.DispatchesPerDay(ctx, tenantID, days)
}

// Sentiment returns the reply sentiment distribution.
func (s *Service) Sentiment(ctx context.Context, tenantID string) (SentimentBreakdown, error) {
	sc, err := s.metrics.SentimentCounts(ctx, tenantID)
	if err != nil {
		return SentimentBreakdown{}, err
	}
	b := SentimentBreakdown{Counts: sc}
	total := sc.Positive + sc.Neutral + sc.Negative
	if total > 0 {
		b.PositivePct = 100 * float64(sc.Positive) / float64(total)
		b.NeutralPct = 100 * float64(sc.Neutral) / float64(total)
		b.NegativePct = 100 * float64(sc.Negative) / float64(total)
	}
	return b, nil
}
