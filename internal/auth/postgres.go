package auth

import (
	"context"
	"database/sql"
	"errors"

	"posvenda.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore     { return &userStore{db: s.db} }
func (s *PGStore) Tenants() TenantStore { return &tenantStore{db: s.db} }

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, tenant_id, name, email, password_hash, role, active, last_login_at, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	// The row defaults fill the timestamps; returning them keeps the struct
	// in step with what the memory store reports.
	return s.db.QueryRowContext(ctx,
		`insert into users(id, tenant_id, name, email, password_hash, role, active)
		 values($1,$2,$3,$4,$5,$6,$7)
		 returning created_at, updated_at`,
		u.ID, u.TenantID, u.Name, u.Email, u.PasswordHash, u.Role, u.Active,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login_at=now(), updated_at=now() where id=$1`, id)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Role, &u.Active, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Tenant store --------------------------------------------------------------

type tenantStore struct{ db *sql.DB }

const tenantColumns = `id, name, slug, email, status, created_at, updated_at`

func (s *tenantStore) Create(ctx context.Context, t *Tenant) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx,
		`insert into tenants(id, name, slug, email, status) values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		t.ID, t.Name, t.Slug, t.Email, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (s *tenantStore) Find(ctx context.Context, id string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tenantColumns+` from tenants where id=$1`, id)
	return scanTenant(row)
}

func (s *tenantStore) FindBySlug(ctx context.Context, slug string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tenantColumns+` from tenants where slug=$1`, slug)
	return scanTenant(row)
}

func (s *tenantStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from tenants where id=$1`, id)
	return err
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Email, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
