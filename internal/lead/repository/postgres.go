package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadpulse/backend/internal/lead/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a lead event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts e with a single conditional write keyed on (source, external_lead_id).
// Race-safe under concurrent redelivery: the unique constraint, not a
// check-then-insert, decides the winner. Sets e.ID to the stored id.
func (r *PostgresRepository) Upsert(ctx context.Context, e *domain.LeadEvent) (string, bool, error) {
	if err := e.Validate(); err != nil {
		return "", false, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	raw := e.RawPayload
	if raw == nil {
		raw = []byte("{}")
	}

	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO lead_events
			(id, tenant_key, campaign_key, source, external_lead_id,
			 form_id, email, phone, club_id, club_name,
			 occurred_at, received_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source, external_lead_id) DO NOTHING
		RETURNING id`,
		e.ID, e.TenantKey, e.CampaignKey, string(e.Source), e.ExternalLeadID,
		nullString(e.FormID), nullString(e.Email), nullString(e.Phone),
		nullString(e.ClubID), nullString(e.ClubName),
		e.OccurredAt, e.ReceivedAt, raw,
	).Scan(&id)
	if err == nil {
		e.ID = id
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("upsert lead event: %w", err)
	}

	// Conflict: the row already exists, return its id.
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM lead_events WHERE source = $1 AND external_lead_id = $2`,
		string(e.Source), e.ExternalLeadID,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("lookup existing lead event: %w", err)
	}
	e.ID = id
	return id, false, nil
}

// LatestByTenant returns the most recently received event summary for tenantKey,
// or nil if the tenant has no events. Errors only on database failures.
func (r *PostgresRepository) LatestByTenant(ctx context.Context, tenantKey string) (*domain.Summary, error) {
	var (
		s   domain.Summary
		src string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_key, campaign_key, source, received_at
		FROM lead_events
		WHERE tenant_key = $1
		ORDER BY received_at DESC
		LIMIT 1`,
		tenantKey,
	).Scan(&s.ID, &s.TenantKey, &s.CampaignKey, &src, &s.ReceivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Source = domain.Source(src)
	return &s, nil
}

// ListByTenant returns up to limit events for the tenant, newest first (source
// time first, receipt time as tiebreak). campaignKeys, when non-nil, restricts
// results to those campaigns.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantKey string, campaignKeys []string, limit int) ([]*domain.LeadEvent, error) {
	query := `
		SELECT id, tenant_key, campaign_key, source, external_lead_id,
		       form_id, email, phone, club_id, club_name,
		       occurred_at, received_at, raw_payload
		FROM lead_events
		WHERE tenant_key = $1`
	args := []any{tenantKey}
	if campaignKeys != nil {
		query += ` AND campaign_key = ANY($2)`
		args = append(args, campaignKeys)
	}
	query += fmt.Sprintf(` ORDER BY occurred_at DESC, received_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LeadEvent
	for rows.Next() {
		var e domain.LeadEvent
		var src string
		var formID, email, phone, clubID, clubName sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantKey, &e.CampaignKey, &src, &e.ExternalLeadID,
			&formID, &email, &phone, &clubID, &clubName,
			&e.OccurredAt, &e.ReceivedAt, &e.RawPayload); err != nil {
			return nil, err
		}
		e.Source = domain.Source(src)
		e.FormID = ptrFromNullString(formID)
		e.Email = ptrFromNullString(email)
		e.Phone = ptrFromNullString(phone)
		e.ClubID = ptrFromNullString(clubID)
		e.ClubName = ptrFromNullString(clubName)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CountByClub aggregates per-club lead counts for events received since the
// given time, largest first. The most recently received club name wins.
func (r *PostgresRepository) CountByClub(ctx context.Context, tenantKey string, since time.Time) ([]*domain.ClubCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT club_id, COUNT(*) AS leads
		FROM lead_events
		WHERE tenant_key = $1 AND received_at >= $2 AND club_id IS NOT NULL
		GROUP BY club_id
		ORDER BY leads DESC, club_id ASC`,
		tenantKey, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ClubCount
	for rows.Next() {
		var c domain.ClubCount
		if err := rows.Scan(&c.ClubID, &c.Leads); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	nameRows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (club_id) club_id, club_name
		FROM lead_events
		WHERE tenant_key = $1 AND received_at >= $2 AND club_id IS NOT NULL
		ORDER BY club_id, received_at DESC`,
		tenantKey, since,
	)
	if err != nil {
		return nil, err
	}
	defer nameRows.Close()

	names := make(map[string]string)
	for nameRows.Next() {
		var clubID string
		var clubName sql.NullString
		if err := nameRows.Scan(&clubID, &clubName); err != nil {
			return nil, err
		}
		if clubName.Valid && clubName.String != "" {
			names[clubID] = clubName.String
		}
	}
	if err := nameRows.Err(); err != nil {
		return nil, err
	}

	for _, c := range out {
		if n, ok := names[c.ClubID]; ok {
			c.ClubName = n
		} else {
			c.ClubName = c.ClubID
		}
	}
	return out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrFromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
