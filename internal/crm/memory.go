package crm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"posvenda.org/internal/ids"
)

var _ Store = (*MemStore)(nil)

// MemStore implements Store in memory with in-process concurrency safety.
// It backs tests and local development without a database.
type MemStore struct {
	mu         sync.RWMutex
	contacts   map[string]*Contact
	campaigns  map[string]*Campaign
	dispatches map[string]*Dispatch
	replies    map[string]*Reply
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		contacts:   make(map[string]*Contact),
		campaigns:  make(map[string]*Campaign),
		dispatches: make(map[string]*Dispatch),
		replies:    make(map[string]*Reply),
	}
}

func (s *MemStore) Contacts() ContactStore    { return &memContactStore{s} }
func (s *MemStore) Campaigns() CampaignStore  { return &memCampaignStore{s} }
func (s *MemStore) Dispatches() DispatchStore { return &memDispatchStore{s} }
func (s *MemStore) Replies() ReplyStore       { return &memReplyStore{s} }
func (s *MemStore) Metrics() MetricsStore     { return &memMetricsStore{s} }

// digitsOnly strips everything but digits so phone comparisons survive
// formatting differences.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type memContactStore struct{ s *MemStore }

func (m *memContactStore) Create(ctx context.Context, c *Contact) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.put(c)
	return nil
}

func (m *memContactStore) BulkCreate(ctx context.Context, contacts []*Contact) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range contacts {
		m.put(c)
	}
	return nil
}

func (m *memContactStore) put(c *Contact) {
	if c.ID == "" {
		c.ID = ids.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	m.s.contacts[c.ID] = &cp
}

func (m *memContactStore) Find(ctx context.Context, tenantID, id string) (*Contact, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	c, ok := m.s.contacts[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memContactStore) List(ctx context.Context, tenantID string, limit, offset int) ([]*Contact, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var all []*Contact
	for _, c := range m.s.contacts {
		if c.TenantID == tenantID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memContactStore) Update(ctx context.Context, c *Contact) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.contacts[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	m.s.contacts[c.ID] = &cp
	return nil
}

func (m *memContactStore) Delete(ctx context.Context, tenantID, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.contacts[id]
	if !ok || c.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.s.contacts, id)
	return nil
}

type memCampaignStore struct{ s *MemStore }

func (m *memCampaignStore) Create(ctx context.Context, c *Campaign) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	m.s.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignStore) Find(ctx context.Context, tenantID, id string) (*Campaign, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	c, ok := m.s.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignStore) ListByTenant(ctx context.Context, tenantID string) ([]*Campaign, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var all []*Campaign
	for _, c := range m.s.campaigns {
		if c.TenantID == tenantID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

func (m *memCampaignStore) Update(ctx context.Context, c *Campaign) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.campaigns[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	m.s.campaigns[c.ID] = &cp
	return nil
}

type memDispatchStore struct{ s *MemStore }

func (m *memDispatchStore) Create(ctx context.Context, d *Dispatch) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.put(d)
	return nil
}

func (m *memDispatchStore) BulkCreate(ctx context.Context, dispatches []*Dispatch) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range dispatches {
		m.put(d)
	}
	return nil
}

func (m *memDispatchStore) put(d *Dispatch) {
	if d.ID == "" {
		d.ID = ids.New()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	cp := *d
	m.s.dispatches[d.ID] = &cp
}

func (m *memDispatchStore) UpdateStatus(ctx context.Context, id string, status DispatchStatus, externalID, errorMessage string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	d, ok := m.s.dispatches[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.ExternalID = externalID
	d.ErrorMessage = errorMessage
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memDispatchStore) ListPending(ctx context.Context, tenantID, campaignID string) ([]*Dispatch, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*Dispatch
	for _, d := range m.s.dispatches {
		if d.TenantID == tenantID && d.CampaignID == campaignID && d.Status == DispatchPending {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memDispatchStore) FindLatestByPhone(ctx context.Context, phone string) (*Dispatch, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	want := digitsOnly(phone)
	if want == "" {
		return nil, ErrNotFound
	}
	var latest *Dispatch
	for _, d := range m.s.dispatches {
		c, ok := m.s.contacts[d.ContactID]
		if !ok || digitsOnly(c.Phone) != want {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

type memReplyStore struct{ s *MemStore }

func (m *memReplyStore) Create(ctx context.Context, r *Reply) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	m.s.replies[r.ID] = &cp
	return nil
}

func (m *memReplyStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]*Reply, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var all []*Reply
	for _, r := range m.s.replies {
		if r.TenantID == tenantID {
			cp := *r
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type memMetricsStore struct{ s *MemStore }

func (m *memMetricsStore) Counts(ctx context.Context, tenantID string) (Counts, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var c Counts
	for _, v := range m.s.contacts {
		if v.TenantID == tenantID {
			c.Contacts++
		}
	}
	for _, v := range m.s.campaigns {
		if v.TenantID == tenantID {
			c.Campaigns++
		}
	}
	for _, v := range m.s.dispatches {
		if v.TenantID == tenantID {
			c.Dispatches++
		}
	}
	for _, v := range m.s.replies {
		if v.TenantID == tenantID {
			c.Replies++
		}
	}
	return c, nil
}

func (m *memMetricsStore) CampaignsByStatus(ctx context.Context, tenantID string) (map[CampaignStatus]int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make(map[CampaignStatus]int)
	for _, c := range m.s.campaigns {
		if c.TenantID == tenantID {
			out[c.Status]++
		}
	}
	return out, nil
}

func (m *memMetricsStore) DispatchesPerDay(ctx context.Context, tenantID string, days int) ([]DayCount, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if days < 1 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	byDay := make(map[time.Time]int)
	for _, d := range m.s.dispatches {
		if d.TenantID != tenantID || d.CreatedAt.Before(cutoff) {
			continue
		}
		day := d.CreatedAt.Truncate(24 * time.Hour)
		byDay[day]++
	}
	out := make([]DayCount, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, DayCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (m *memMetricsStore) SentimentCounts(ctx context.Context, tenantID string) (SentimentCounts, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var sc SentimentCounts
	for _, r := range m.s.replies {
		if r.TenantID != tenantID {
			continue
		}
		switch r.Sentiment {
		case SentimentPositive:
			sc.Positive++
		case SentimentNegative:
			sc.Negative++
		default:
			sc.Neutral++
		}
	}
	return sc, nil
}

func (m *memMetricsStore) CampaignStats(ctx context.Context, tenantID, campaignID string) (CampaignStats, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	stats := CampaignStats{CampaignID: campaignID}
	for _, d := range m.s.dispatches {
		if d.TenantID != tenantID || d.CampaignID != campaignID {
			continue
		}
		switch d.Status {
		case DispatchPending:
			stats.Pending++
		case DispatchSent:
			stats.Sent++
		case DispatchFailed:
			stats.Failed++
		}
	}
	for _, r := range m.s.replies {
		if r.TenantID == tenantID && r.CampaignID == campaignID {
			stats.Replies++
		}
	}
	return stats, nil
}
