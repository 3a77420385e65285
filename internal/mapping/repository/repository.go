package repository

import (
	"context"
	"errors"

	leaddomain "leadpulse/backend/internal/lead/domain"
	"leadpulse/backend/internal/mapping/domain"
)

// ErrDuplicate is returned by Create when a mapping for the same
// (tenant, source, form) already exists.
var ErrDuplicate = errors.New("mapping already exists")

// Repository defines persistence for attribution mappings.
type Repository interface {
	// GetByTenantSourceForm returns the mapping for the key, or nil if not found.
	GetByTenantSourceForm(ctx context.Context, tenantKey string, source leaddomain.Source, formID string) (*domain.Mapping, error)
	// Create persists a new mapping. Returns ErrDuplicate on key conflict.
	Create(ctx context.Context, m *domain.Mapping) error
}
