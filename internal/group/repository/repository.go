package repository

import (
	"context"

	"leadpulse/backend/internal/group/domain"
)

// Repository defines persistence for campaign groups.
type Repository interface {
	// List returns all groups for the tenant with their membership, ordered by
	// group key.
	List(ctx context.Context, tenantKey string) ([]*domain.Group, error)
	// GetByTenantAndKey returns the group for (tenantKey, groupKey), or nil if
	// not found.
	GetByTenantAndKey(ctx context.Context, tenantKey, groupKey string) (*domain.Group, error)
	// Replace upserts the group and replaces its membership with exactly
	// g.CampaignKeys, atomically. An empty membership empties the group.
	Replace(ctx context.Context, g *domain.Group) error
}
