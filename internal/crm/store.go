package crm

import (
	"context"
	"time"
)

// Store describes the persistence operations the CRM subsystem needs. It is
// injected into the Service at construction time; tests substitute MemStore.
type Store interface {
	Contacts() ContactStore
	Campaigns() CampaignStore
	Dispatches() DispatchStore
	Replies() ReplyStore
	Metrics() MetricsStore
}

// ContactStore manages contact rows, always scoped by tenant.
type ContactStore interface {
	Create(ctx context.Context, c *Contact) error
	BulkCreate(ctx context.Context, contacts []*Contact) error
	Find(ctx context.Context, tenantID, id string) (*Contact, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*Contact, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, tenantID, id string) error
}

// CampaignStore manages campaign rows.
type CampaignStore interface {
	Create(ctx context.Context, c *Campaign) error
	Find(ctx context.Context, tenantID, id string) (*Campaign, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Campaign, error)
	Update(ctx context.Context, c *Campaign) error
}

// DispatchStore manages outbound message rows.
type DispatchStore interface {
	Create(ctx context.Context, d *Dispatch) error
	BulkCreate(ctx context.Context, dispatches []*Dispatch) error
	UpdateStatus(ctx context.Context, id string, status DispatchStatus, externalID, errorMessage string) error
	ListPending(ctx context.Context, tenantID, campaignID string) ([]*Dispatch, error)
	// FindLatestByPhone correlates an inbound message with the most recent
	// dispatch sent to that phone number.
	FindLatestByPhone(ctx context.Context, phone string) (*Dispatch, error)
}

// ReplyStore manages inbound response rows.
type ReplyStore interface {
	Create(ctx context.Context, r *Reply) error
	ListRecent(ctx context.Context, tenantID string, limit int) ([]*Reply, error)
}

// Counts aggregates the headline dashboard numbers for one tenant.
type Counts struct {
	Contacts   int `json:"total_contacts"`
	Campaigns  int `json:"total_campaigns"`
	Dispatches int `json:"total_dispatches"`
	Replies    int `json:"total_replies"`
}

// DayCount is one point of a dispatches-per-day series.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// SentimentCounts breaks replies down by classified sentiment.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// CampaignStats summarizes delivery and response figures for one campaign.
type CampaignStats struct {
	CampaignID string `json:"campaign_id"`
	Pending    int    `json:"pending"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Replies    int    `json:"replies"`
}

// MetricsStore serves the dashboard aggregations.
type MetricsStore interface {
	Counts(ctx context.Context, tenantID string) (Counts, error)
	CampaignsByStatus(ctx context.Context, tenantID string) (map[CampaignStatus]int, error)
	DispatchesPerDay(ctx context.Context, tenantID string, days int) ([]DayCount, error)
	SentimentCounts(ctx context.Context, tenantID string) (SentimentCounts, error)
	CampaignStats(ctx context.Context, tenantID, campaignID string) (CampaignStats, error)
}
