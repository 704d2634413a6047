package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Service orchestrates login, registration and refresh-token exchange. It
// holds no state of its own beyond its collaborators; every operation is a
// self-contained round trip to the store.
type Service struct {
	store  Store
	issuer *Issuer
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(store Store, issuer *Issuer, opts ...ServiceOption) *Service {
	svc := &Service{store: store, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login verifies credentials and issues a token pair. Unknown email and wrong
// password both fail with ErrInvalidCredentials so the caller cannot tell
// whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	// Best effort: a failed timestamp update must not block the login.
	_ = s.store.Users().TouchLastLogin(ctx, user.ID)

	tenant, err := s.store.Tenants().Find(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.issuer.Issue(identityOf(user))
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tenant: tenant, Tokens: tokens}, nil
}

// RegisterInput carries the fields needed to create a tenant together with
// its first administrator.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	TenantName string
	TenantSlug string
}

// Register creates a new tenant and its admin user, then issues tokens.
//
// Tenant and user are written in two steps with no surrounding transaction.
// If the user insert fails the freshly created tenant is deleted on a best
// effort basis; should that cleanup also fail, the orphaned tenant remains
// and is unreachable (no user references it).
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	slug := strings.TrimSpace(strings.ToLower(in.TenantSlug))

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.Tenants().FindBySlug(ctx, slug); err == nil {
		return nil, ErrDuplicateSlug
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tenant := &Tenant{
		Name:   strings.TrimSpace(in.TenantName),
		Slug:   slug,
		Email:  email,
		Status: TenantActive,
	}
	if err := s.store.Tenants().Create(ctx, tenant); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		TenantID:     tenant.ID,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		Active:       true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		_ = s.store.Tenants().Delete(ctx, tenant.ID)
		return nil, err
	}

	tokens, err := s.issuer.Issue(identityOf(user))
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tenant: tenant, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. Both tokens
// are reissued, not just the access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.Kind != KindRefresh {
		return TokenPair{}, ErrWrongTokenType
	}
	user, err := s.store.Users().FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInactiveOrMissing
		}
		return TokenPair{}, err
	}
	if !user.Active {
		return TokenPair{}, ErrInactiveOrMissing
	}
	return s.issuer.Issue(identityOf(user))
}

// CurrentUser resolves the full user and tenant records behind an identity.
func (s *Service) CurrentUser(ctx context.Context, identity Identity) (*User, *Tenant, error) {
	user, err := s.store.Users().FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.store.Tenants().Find(ctx, user.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

func identityOf(u *User) Identity {
	return Identity{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Role:     u.Role,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
