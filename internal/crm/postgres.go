package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

func (s *PGStore) Contacts() ContactStore    { return &contactStore{db: s.db} }
func (s *PGStore) Campaigns() CampaignStore  { return &campaignStore{db: s.db} }
func (s *PGStore) Dispatches() DispatchStore { return &dispatchStore{db: s.db} }
func (s *PGStore) Replies() ReplyStore       { return &replyStore{db: s.db} }
func (s *PGStore) Metrics() MetricsStore     { return &metricsStore{db: s.db} }

type rowScanner interface {
	Scan(dest ...any) error
}

// jsonOrNil marshals v for a jsonb column, keeping empty values as NULL.
func jsonOrNil(v any) (any, error) {
	switch t := v.(type) {
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Contact store --------------------------------------------------------------

type contactStore struct{ db *sql.DB }

const contactColumns = `id, tenant_id, name, phone, email, document, address, custom, tags, origin, status, created_at, updated_at`

func (s *contactStore) Create(ctx context.Context, c *Contact) error {
	return insertContact(ctx, s.db, c)
}

func (s *contactStore) BulkCreate(ctx context.Context, contacts []*Contact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		if err := insertContact(ctx, tx, c); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertContact(ctx context.Context, db rowQuerier, c *Contact) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	custom, err := jsonOrNil(c.Custom)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	tags, err := jsonOrNil(c.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	// Returning the defaulted timestamps keeps the struct in step with the
	// memory store.
	return db.QueryRowContext(ctx,
		`insert into contacts(id, tenant_id, name, phone, email, document, address, custom, tags, origin, status)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 returning created_at, updated_at`,
		c.ID, c.TenantID, c.Name, c.Phone, c.Email, c.Document, c.Address,
		custom, tags, c.Origin, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *contactStore) Find(ctx context.Context, tenantID, id string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+contactColumns+` from contacts where tenant_id=$1 and id=$2`, tenantID, id)
	return scanContact(row)
}

func (s *contactStore) List(ctx context.Context, tenantID string, limit, offset int) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+contactColumns+` from contacts
		 where tenant_id=$1 order by created_at desc limit $2 offset $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *contactStore) Update(ctx context.Context, c *Contact) error {
	custom, err := jsonOrNil(c.Custom)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	tags, err := jsonOrNil(c.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`update contacts
		 set name=$3, phone=$4, email=$5, document=$6, address=$7, custom=$8, tags=$9, status=$10, updated_at=now()
		 where tenant_id=$1 and id=$2`,
		c.TenantID, c.ID, c.Name, c.Phone, c.Email, c.Document, c.Address, custom, tags, c.Status,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *contactStore) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from contacts where tenant_id=$1 and id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanContact(row rowScanner) (*Contact, error) {
	var c Contact
	var custom, tags []byte
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.Document,
		&c.Address, &custom, &tags, &c.Origin, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(custom, &c.Custom); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	if err := unmarshalJSON(tags, &c.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &c, nil
}

// requireRow converts zero affected rows into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Campaign store -------------------------------------------------------------

type campaignStore struct{ db *sql.DB }

const campaignColumns = `id, tenant_id, name, description, type, channel, template, settings, status, scheduled_at, total_contacts, created_at, updated_at`

func (s *campaignStore) Create(ctx context.Context, c *Campaign) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	settings, err := jsonOrNil(c.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.db.QueryRowContext(ctx,
		`insert into campaigns(id, tenant_id, name, description, type, channel, template, settings, status, scheduled_at, total_contacts)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 returning created_at, updated_at`,
		c.ID, c.TenantID, c.Name, c.Description, c.Type, c.Channel, c.Template,
		settings, c.Status, c.ScheduledAt, c.TotalContacts,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *campaignStore) Find(ctx context.Context, tenantID, id string) (*Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+campaignColumns+` from campaigns where tenant_id=$1 and id=$2`, tenantID, id)
	return scanCampaign(row)
}

func (s *campaignStore) ListByTenant(ctx context.Context, tenantID string) ([]*Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+campaignColumns+` from campaigns where tenant_id=$1 order by created_at desc`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *campaignStore) Update(ctx context.Context, c *Campaign) error {
	settings, err := jsonOrNil(c.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`update campaigns
		 set name=$3, description=$4, type=$5, channel=$6, template=$7, settings=$8,
		     status=$9, scheduled_at=$10, total_contacts=$11, updated_at=now()
		 where tenant_id=$1 and id=$2`,
		c.TenantID, c.ID, c.Name, c.Description, c.Type, c.Channel, c.Template,
		settings, c.Status, c.ScheduledAt, c.TotalContacts,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanCampaign(row rowScanner) (*Campaign, error) {
	var c Campaign
	var settings []byte
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.Type, &c.Channel,
		&c.Template, &settings, &c.Status, &c.ScheduledAt, &c.TotalContacts,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(settings, &c.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &c, nil
}

// Dispatch store -------------------------------------------------------------

type dispatchStore struct{ db *sql.DB }

const dispatchColumns = `id, tenant_id, campaign_id, contact_id, channel, message, status, external_id, error_message, created_at, updated_at`

func (s *dispatchStore) Create(ctx context.Context, d *Dispatch) error {
	return insertDispatch(ctx, s.db, d)
}

func (s *dispatchStore) BulkCreate(ctx context.Context, dispatches []*Dispatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, d := range dispatches {
		if err := insertDispatch(ctx, tx, d); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func insertDispatch(ctx context.Context, db rowQuerier, d *Dispatch) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	return db.QueryRowContext(ctx,
		`insert into dispatches(id, tenant_id, campaign_id, contact_id, channel, message, status, external_id, error_message)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 returning created_at, updated_at`,
		d.ID, d.TenantID, d.CampaignID, d.ContactID, d.Channel, d.Message,
		d.Status, d.ExternalID, d.ErrorMessage,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (s *dispatchStore) UpdateStatus(ctx context.Context, id string, status DispatchStatus, externalID, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`update dispatches set status=$2, external_id=$3, error_message=$4, updated_at=now() where id=$1`,
		id, status, externalID, errorMessage,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *dispatchStore) ListPending(ctx context.Context, tenantID, campaignID string) ([]*Dispatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+dispatchColumns+` from dispatches
		 where tenant_id=$1 and campaign_id=$2 and status='pending'
		 order by created_at asc`,
		tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *dispatchStore) FindLatestByPhone(ctx context.Context, phone string) (*Dispatch, error) {
	row := s.db.QueryRowContext(ctx,
		`select d.id, d.tenant_id, d.campaign_id, d.contact_id, d.channel, d.message,
		        d.status, d.external_id, d.error_message, d.created_at, d.updated_at
		 from dispatches d
		 join contacts c on c.id = d.contact_id
		 where regexp_replace(c.phone, '\D', '', 'g') = regexp_replace($1, '\D', '', 'g')
		 order by d.created_at desc limit 1`,
		phone)
	return scanDispatch(row)
}

func scanDispatch(row rowScanner) (*Dispatch, error) {
	var d Dispatch
	err := row.Scan(&d.ID, &d.TenantID, &d.CampaignID, &d.ContactID, &d.Channel,
		&d.Message, &d.Status, &d.ExternalID, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Reply store ----------------------------------------------------------------

type replyStore struct{ db *sql.DB }

const replyColumns = `id, tenant_id, dispatch_id, campaign_id, contact_id, channel, content, sentiment, created_at`

func (s *replyStore) Create(ctx context.Context, r *Reply) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx,
		`insert into replies(id, tenant_id, dispatch_id, campaign_id, contact_id, channel, content, sentiment)
		 values($1,$2,$3,$4,$5,$6,$7,$8)
		 returning created_at`,
		r.ID, r.TenantID, r.DispatchID, r.CampaignID, r.ContactID, r.Channel, r.Content, r.Sentiment,
	).Scan(&r.CreatedAt)
}

func (s *replyStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]*Reply, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+replyColumns+` from replies where tenant_id=$1 order by created_at desc limit $2`,
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Reply
	for rows.Next() {
		var r Reply
		if err := rows.Scan(&r.ID, &r.TenantID, &r.DispatchID, &r.CampaignID,
			&r.ContactID, &r.Channel, &r.Content, &r.Sentiment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Metrics store --------------------------------------------------------------

type metricsStore struct{ db *sql.DB }

func (s *metricsStore) Counts(ctx context.Context, tenantID string) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`select
		   (select count(*) from contacts where tenant_id=$1),
		   (select count(*) from campaigns where tenant_id=$1),
		   (select count(*) from dispatches where tenant_id=$1),
		   (select count(*) from replies where tenant_id=$1)`,
		tenantID).Scan(&c.Contacts, &c.Campaigns, &c.Dispatches, &c.Replies)
	return c, err
}

func (s *metricsStore) CampaignsByStatus(ctx context.Context, tenantID string) (map[CampaignStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`select status, count(*) from campaigns where tenant_id=$1 group by status`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[CampaignStatus]int)
	for rows.Next() {
		var status CampaignStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (s *metricsStore) DispatchesPerDay(ctx context.Context, tenantID string, days int) ([]DayCount, error) {
	if days < 1 {
		days = 7
	}
	rows, err := s.db.QueryContext(ctx,
		`select date_trunc('day', created_at) as day, count(*)
		 from dispatches
		 where tenant_id=$1 and created_at >= now() - make_interval(days => $2)
		 group by day order by day`,
		tenantID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *metricsStore) SentimentCounts(ctx context.Context, tenantID string) (SentimentCounts, error) {
	var sc SentimentCounts
	err := s.db.QueryRowContext(ctx,
		`select
		   count(*) filter (where sentiment='positive'),
		   count(*) filter (where sentiment='neutral'),
		   count(*) filter (where sentiment='negative')
		 from replies where tenant_id=$1`,
		tenantID).Scan(&sc.Positive, &sc.Neutral, &sc.Negative)
	return sc, err
}

func (s *metricsStore) CampaignStats(ctx context.Context, tenantID, campaignID string) (CampaignStats, error) {
	stats := CampaignStats{CampaignID: campaignID}
	err := s.db.QueryRowContext(ctx,
		`select
		   count(*) filter (where status='pending'),
		   count(*) filter (where status='sent'),
		   count(*) filter (where status='failed'),
		   (select count(*) from replies where tenant_id=$1 and campaign_id=$2)
		 from dispatches where tenant_id=$1 and campaign_id=$2`,
		tenantID, campaignID).Scan(&stats.Pending, &stats.Sent, &stats.Failed, &stats.Replies)
	return stats, err
}
