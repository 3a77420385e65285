package repository

import (
	"context"

	"leadpulse/backend/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	// Ensure creates the tenant if it does not exist. Idempotent.
	Ensure(ctx context.Context, tenantKey string) error
	// Get returns the tenant for tenantKey, or nil if not found.
	Get(ctx context.Context, tenantKey string) (*domain.Tenant, error)
}
