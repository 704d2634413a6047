package auth

import "time"

// Role determines what a user may do inside their tenant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// TenantStatus marks whether a tenant account is usable.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
)

// Tenant is an isolated organizational account. Every data row in the system
// is scoped to exactly one tenant. The slug is URL-safe, globally unique and
// immutable after creation.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Email     string       `json:"email"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// User is an identity record bound to a tenant. Users are never physically
// deleted; deactivation flips the Active flag.
type User struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Identity is the resolved request-scoped identity attached by the
// authentication middleware and discarded at the end of the request.
type Identity struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the administrative role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// TokenPair is the credential set handed to clients. ExpiresIn always refers
// to the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session is the result of a successful login or registration.
type Session struct {
	User   *User     `json:"user"`
	Tenant *Tenant   `json:"tenant"`
	Tokens TokenPair `json:"tokens"`
}
