package auth

import "context"

// Store describes the persistence operations the auth subsystem needs. It is
// injected into the Service at construction time so tests can substitute a
// fake implementation.
type Store interface {
	Users() UserStore
	Tenants() TenantStore
}

// UserStore manages user rows.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// TenantStore manages tenant rows. Delete exists solely for the best-effort
// cleanup of an orphaned tenant when the second half of registration fails.
type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	Find(ctx context.Context, id string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	Delete(ctx context.Context, id string) error
}
