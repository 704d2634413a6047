package crm

import (
	"context"
	"errors"
	"strings"
	"time"

	"posvenda.org/internal/obs"
	"posvenda.org/internal/sentiment"
)

// statsFetchLimit bounds how many contacts a single stats or export pass
// reads. Matches the pagination ceiling of the HTTP layer.
const statsFetchLimit = 10000

// Service implements contact, campaign and dispatch operations on top of a
// Store. It keeps no state between calls.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the CRM service.
func NewService(store Store, opts ...ServiceOption) *Service {
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Contacts -----------------------------------------------------------------

// CreateContact validates and persists a new contact. A contact needs a name
// and at least one reachable channel (phone or email).
func (s *Service) CreateContact(ctx context.Context, c *Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Name == "" {
		return ErrInvalidInput
	}
	if c.Phone == "" && c.Email == "" {
		return ErrInvalidInput
	}
	if c.Origin == "" {
		c.Origin = OriginManual
	}
	if c.Status == "" {
		c.Status = ContactActive
	}
	return s.store.Contacts().Create(ctx, c)
}

// ListContacts returns one page of contacts. A non-empty search narrows the
// fetched page by substring match on name, phone and email. The filter runs
// after pagination, so a filtered page may hold fewer than perPage entries
// even when later pages contain matches; clients page until an empty result.
func (s *Service) ListContacts(ctx context.Context, tenantID string, page, perPage int, search string) ([]*Contact, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 1000 {
		perPage = 50
	}
	offset := (page - 1) * perPage
	contacts, err := s.store.Contacts().List(ctx, tenantID, perPage, offset)
	if err != nil {
		return nil, err
	}
	search = strings.TrimSpace(strings.ToLower(search))
	if search == "" {
		return contacts, nil
	}
	filtered := contacts[:0]
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), search) ||
			strings.Contains(c.Phone, search) ||
			strings.Contains(strings.ToLower(c.Email), search) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// GetContact fetches a single contact scoped to the tenant.
func (s *Service) GetContact(ctx context.Context, tenantID, id string) (*Contact, error) {
	return s.store.Contacts().Find(ctx, tenantID, id)
}

// UpdateContact persists changes to an existing contact.
func (s *Service) UpdateContact(ctx context.Context, c *Contact) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.TenantID) == "" {
		return ErrInvalidInput
	}
	return s.store.Contacts().Update(ctx, c)
}

// DeleteContact removes a contact.
func (s *Service) DeleteContact(ctx context.Context, tenantID, id string) error {
	return s.store.Contacts().Delete(ctx, tenantID, id)
}

// ContactStats summarizes the tenant's contact base.
type ContactStats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	WithPhone   int `json:"with_phone"`
	WithEmail   int `json:"with_email"`
	Unreachable int `json:"unreachable"`
}

// ContactStatistics computes contact statistics for the tenant.
func (s *Service) ContactStatistics(ctx context.Context, tenantID string) (ContactStats, error) {
	contacts, err := s.store.Contacts().List(ctx, tenantID, statsFetchLimit, 0)
	if err != nil {
		return ContactStats{}, err
	}
	var stats ContactStats
	stats.Total = len(contacts)
	for _, c := range contacts {
		if c.Status == ContactActive {
			stats.Active++
		}
		if c.Phone != "" {
			stats.WithPhone++
		}
		if c.Email != "" {
			stats.WithEmail++
		}
		if c.Phone == "" && c.Email == "" {
			stats.Unreachable++
		}
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// Campaigns ----------------------------------------------------------------

// CreateCampaign validates and persists a new campaign in draft status.
func (s *Service) CreateCampaign(ctx context.Context, c *Campaign) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Template = strings.TrimSpace(c.Template)
	if c.Name == "" || c.Template == "" {
		return ErrInvalidInput
	}
	if !ValidCampaignType(c.Type) || !ValidChannel(c.Channel) {
		return ErrInvalidInput
	}
	c.Status = StatusDraft
	return s.store.Campaigns().Create(ctx, c)
}

// GetCampaign fetches a single campaign scoped to the tenant.
func (s *Service) GetCampaign(ctx context.Context, tenantID, id string) (*Campaign, error) {
	return s.store.Campaigns().Find(ctx, tenantID, id)
}

// ListCampaigns returns every campaign of the tenant, newest first.
func (s *Service) ListCampaigns(ctx context.Context, tenantID string) ([]*Campaign, error) {
	return s.store.Campaigns().ListByTenant(ctx, tenantID)
}

// UpdateCampaign persists changes to an existing campaign. Status moves only
// through the dedicated transition methods.
func (s *Service) UpdateCampaign(ctx context.Context, c *Campaign) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.TenantID) == "" {
		return ErrInvalidInput
	}
	current, err := s.store.Campaigns().Find(ctx, c.TenantID, c.ID)
	if err != nil {
		return err
	}
	c.Status = current.Status
	c.TotalContacts = current.TotalContacts
	return s.store.Campaigns().Update(ctx, c)
}

// ExecuteCampaign creates one pending dispatch per recipient and moves the
// campaign to running. When contactIDs is empty, every active contact of the
// tenant becomes a recipient. There is no batching, retry or rate limiting:
// one pass, one row per recipient.
func (s *Service) ExecuteCampaign(ctx context.Context, tenantID, campaignID string, contactIDs []string) (int, error) {
	campaign, err := s.store.Campaigns().Find(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != StatusDraft && campaign.Status != StatusPaused {
		return 0, ErrInvalidStatus
	}

	var recipients []*Contact
	if len(contactIDs) == 0 {
		all, err := s.store.Contacts().List(ctx, tenantID, statsFetchLimit, 0)
		if err != nil {
			return 0, err
		}
		for _, c := range all {
			if c.Status == ContactActive {
				recipients = append(recipients, c)
			}
		}
	} else {
		for _, id := range contactIDs {
			c, err := s.store.Contacts().Find(ctx, tenantID, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return 0, err
			}
			recipients = append(recipients, c)
		}
	}
	if len(recipients) == 0 {
		return 0, ErrNoRecipients
	}

	dispatches := make([]*Dispatch, 0, len(recipients))
	for _, c := range recipients {
		dispatches = append(dispatches, &Dispatch{
			TenantID:   tenantID,
			CampaignID: campaign.ID,
			ContactID:  c.ID,
			Channel:    campaign.Channel,
			Message:    RenderTemplate(campaign.Template, c),
			Status:     DispatchPending,
		})
	}
	if err := s.store.Dispatches().BulkCreate(ctx, dispatches); err != nil {
		return 0, err
	}
	for range dispatches {
		obs.CountDispatch(string(campaign.Channel), string(DispatchPending))
	}

	campaign.Status = StatusRunning
	campaign.TotalContacts = len(recipients)
	if err := s.store.Campaigns().Update(ctx, campaign); err != nil {
		return len(dispatches), err
	}
	return len(dispatches), nil
}

// PauseCampaign moves a running campaign to paused.
func (s *Service) PauseCampaign(ctx context.Context, tenantID, id string) (*Campaign, error) {
	return s.transition(ctx, tenantID, id, StatusPaused, StatusRunning)
}

// ResumeCampaign moves a paused campaign back to running.
func (s *Service) ResumeCampaign(ctx context.Context, tenantID, id string) (*Campaign, error) {
	return s.transition(ctx, tenantID, id, StatusRunning, StatusPaused)
}

// CompleteCampaign moves a running campaign to completed once its queue has
// been delivered.
func (s *Service) CompleteCampaign(ctx context.Context, tenantID, id string) (*Campaign, error) {
	return s.transition(ctx, tenantID, id, StatusCompleted, StatusRunning)
}

// CancelCampaign cancels any campaign that has not finished yet.
func (s *Service) CancelCampaign(ctx context.Context, tenantID, id string) (*Campaign, error) {
	return s.transition(ctx, tenantID, id, StatusCancelled, StatusDraft, StatusRunning, StatusPaused)
}

func (s *Service) transition(ctx context.Context, tenantID, id string, to CampaignStatus, allowedFrom ...CampaignStatus) (*Campaign, error) {
	campaign, err := s.store.Campaigns().Find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, from := range allowedFrom {
		if campaign.Status == from {
			ok = true
			break
		}
	}
	if !ok {
		return nil, ErrInvalidStatus
	}
	campaign.Status = to
	if err := s.store.Campaigns().Update(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// CampaignStatistics returns delivery/response figures for one campaign.
func (s *Service) CampaignStatistics(ctx context.Context, tenantID, campaignID string) (CampaignStats, error) {
	if _, err := s.store.Campaigns().Find(ctx, tenantID, campaignID); err != nil {
		return CampaignStats{}, err
	}
	return s.store.Metrics().CampaignStats(ctx, tenantID, campaignID)
}

// Dispatches and replies ----------------------------------------------------

// CreateDispatch persists a dispatch created outside campaign execution
// (direct gateway sends).
func (s *Service) CreateDispatch(ctx context.Context, d *Dispatch) error {
	if strings.TrimSpace(d.TenantID) == "" || !ValidChannel(d.Channel) {
		return ErrInvalidInput
	}
	if d.Status == "" {
		d.Status = DispatchPending
	}
	if err := s.store.Dispatches().Create(ctx, d); err != nil {
		return err
	}
	obs.CountDispatch(string(d.Channel), string(d.Status))
	return nil
}

// PendingDispatches lists the undelivered queue of a campaign in creation
// order.
func (s *Service) PendingDispatches(ctx context.Context, tenantID, campaignID string) ([]*Dispatch, error) {
	if _, err := s.store.Campaigns().Find(ctx, tenantID, campaignID); err != nil {
		return nil, err
	}
	return s.store.Dispatches().ListPending(ctx, tenantID, campaignID)
}

// MarkDispatch records a delivery outcome for a dispatch.
func (s *Service) MarkDispatch(ctx context.Context, id string, status DispatchStatus, externalID, errorMessage string) error {
	return s.store.Dispatches().UpdateStatus(ctx, id, status, externalID, errorMessage)
}

// RecordInbound stores an inbound message, correlating it with the latest
// dispatch to the sender's phone and classifying its sentiment. Messages
// from numbers we never messaged are dropped with ErrNotFound.
func (s *Service) RecordInbound(ctx context.Context, phone, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if phone == "" || content == "" {
		return nil, ErrInvalidInput
	}
	dispatch, err := s.store.Dispatches().FindLatestByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	reply := &Reply{
		TenantID:   dispatch.TenantID,
		DispatchID: dispatch.ID,
		CampaignID: dispatch.CampaignID,
		ContactID:  dispatch.ContactID,
		Channel:    dispatch.Channel,
		Content:    content,
		Sentiment:  Sentiment(sentiment.Classify(content)),
	}
	if err := s.store.Replies().Create(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// RecentReplies lists the newest inbound responses of the tenant.
func (s *Service) RecentReplies(ctx context.Context, tenantID string, limit int) ([]*Reply, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	return s.store.Replies().ListRecent(ctx, tenantID, limit)
}
