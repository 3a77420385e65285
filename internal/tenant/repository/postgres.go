package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leadpulse/backend/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ensure creates the tenant if it does not exist. Safe under concurrent first references.
func (r *PostgresRepository) Ensure(ctx context.Context, tenantKey string) error {
	if tenantKey == "" {
		return errors.New("tenant key is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (tenant_key, name, created_at)
		VALUES ($1, $1, $2)
		ON CONFLICT (tenant_key) DO NOTHING`,
		tenantKey, time.Now().UTC(),
	)
	return err
}

// Get returns the tenant for tenantKey, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, tenantKey string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_key, name, created_at FROM tenants WHERE tenant_key = $1`,
		tenantKey,
	).Scan(&t.TenantKey, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
