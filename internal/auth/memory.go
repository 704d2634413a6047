package auth

import (
	"context"
	"sync"
	"time"

	"posvenda.org/internal/ids"
)

var _ Store = (*MemStore)(nil)

// MemStore implements Store in memory with in-process concurrency safety.
// It backs tests and local development without a database.
type MemStore struct {
	mu      sync.RWMutex
	users   map[string]*User   // by id
	tenants map[string]*Tenant // by id
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:   make(map[string]*User),
		tenants: make(map[string]*Tenant),
	}
}

func (s *MemStore) Users() UserStore     { return &memUserStore{s} }
func (s *MemStore) Tenants() TenantStore { return &memTenantStore{s} }

type memUserStore struct{ s *MemStore }

func (m *memUserStore) Create(ctx context.Context, u *User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) TouchLastLogin(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	return nil
}

type memTenantStore struct{ s *MemStore }

func (m *memTenantStore) Create(ctx context.Context, t *Tenant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.s.tenants[t.ID] = &cp
	return nil
}

func (m *memTenantStore) Find(ctx context.Context, id string) (*Tenant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	t, ok := m.s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantStore) FindBySlug(ctx context.Context, slug string) (*Tenant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, t := range m.s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTenantStore) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.tenants, id)
	return nil
}

// TenantCount reports how many tenants exist; used by tests asserting that
// failed registrations do not leave extra rows behind.
func (s *MemStore) TenantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants)
}
