package crm

import "time"

// ContactStatus marks whether a contact may receive campaign messages.
type ContactStatus string

const (
	ContactActive   ContactStatus = "active"
	ContactInactive ContactStatus = "inactive"
)

// ContactOrigin records how a contact entered the system.
type ContactOrigin string

const (
	OriginManual ContactOrigin = "manual"
	OriginImport ContactOrigin = "import"
)

// Contact is a person reachable by at least one channel. Every contact is
// scoped to exactly one tenant.
type Contact struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone,omitempty"`
	Email     string            `json:"email,omitempty"`
	Document  string            `json:"document,omitempty"`
	Address   string            `json:"address,omitempty"`
	Custom    map[string]string `json:"custom,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Origin    ContactOrigin     `json:"origin"`
	Status    ContactStatus     `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CampaignType classifies the intent of an outbound campaign.
type CampaignType string

const (
	TypeGreeting    CampaignType = "greeting"
	TypeSurvey      CampaignType = "survey"
	TypeFollowUp    CampaignType = "follow_up"
	TypePromotional CampaignType = "promotional"
)

// Channel is the transport a message travels over.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// CampaignStatus drives the campaign state machine:
// draft -> running -> paused -> running -> ... -> completed | cancelled.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusRunning   CampaignStatus = "running"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
	StatusCancelled CampaignStatus = "cancelled"
)

// Campaign is an outbound messaging campaign owned by a tenant.
type Campaign struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Type          CampaignType      `json:"type"`
	Channel       Channel           `json:"channel"`
	Template      string            `json:"template"`
	Settings      map[string]string `json:"settings,omitempty"`
	Status        CampaignStatus    `json:"status"`
	ScheduledAt   *time.Time        `json:"scheduled_at,omitempty"`
	TotalContacts int               `json:"total_contacts"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DispatchStatus tracks a single outbound message. There is no retry state:
// a dispatch either goes out or records the failure it died with.
type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
)

// Dispatch is one message to one recipient. Campaign execution creates one
// pending row per recipient; the gateway path flips it to sent or failed.
type Dispatch struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	CampaignID   string         `json:"campaign_id,omitempty"`
	ContactID    string         `json:"contact_id,omitempty"`
	Channel      Channel        `json:"channel"`
	Message      string         `json:"message"`
	Status       DispatchStatus `json:"status"`
	ExternalID   string         `json:"external_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Sentiment is the coarse classification attached to inbound replies.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Reply is an inbound response correlated (when possible) with the dispatch
// that triggered it.
type Reply struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DispatchID string    `json:"dispatch_id,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	ContactID  string    `json:"contact_id,omitempty"`
	Channel    Channel   `json:"channel"`
	Content    string    `json:"content"`
	Sentiment  Sentiment `json:"sentiment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidCampaignType reports whether t is a known campaign type.
func ValidCampaignType(t CampaignType) bool {
	switch t {
	case TypeGreeting, TypeSurvey, TypeFollowUp, TypePromotional:
		return true
	}
	return false
}

// ValidChannel reports whether c is a known channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}
