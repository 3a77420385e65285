package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	leaddomain "leadpulse/backend/internal/lead/domain"
	"leadpulse/backend/internal/mapping/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a mapping repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByTenantSourceForm returns the mapping for (tenantKey, source, formID), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTenantSourceForm(ctx context.Context, tenantKey string, source leaddomain.Source, formID string) (*domain.Mapping, error) {
	var (
		m     domain.Mapping
		src   string
		force sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_key, source, form_id, campaign_key, force_tenant_key, created_at
		FROM mappings
		WHERE tenant_key = $1 AND source = $2 AND form_id = $3`,
		tenantKey, string(source), formID,
	).Scan(&m.ID, &m.TenantKey, &src, &m.FormID, &m.CampaignKey, &force, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Source = leaddomain.Source(src)
	if force.Valid {
		m.ForceTenantKey = &force.String
	}
	return &m, nil
}

// Create persists a new mapping. Returns ErrDuplicate when a mapping with the
// same (tenant, source, form) key already exists.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var force sql.NullString
	if m.ForceTenantKey != nil && *m.ForceTenantKey != "" {
		force = sql.NullString{String: *m.ForceTenantKey, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mappings (id, tenant_key, source, form_id, campaign_key, force_tenant_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.TenantKey, string(m.Source), m.FormID, m.CampaignKey, force, m.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
