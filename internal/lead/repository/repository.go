package repository

import (
	"context"
	"time"

	"leadpulse/backend/internal/lead/domain"
)

// Repository defines persistence for canonical lead events.
type Repository interface {
	// Upsert persists e if no event with the same (source, external lead id)
	// exists, and reports the stored id and whether a row was created. The
	// uniqueness constraint is the idempotency mechanism; redelivery returns
	// the existing id with created=false.
	Upsert(ctx context.Context, e *domain.LeadEvent) (id string, created bool, err error)
	// LatestByTenant returns the most recently received event summary for the
	// tenant, or nil if the tenant has no events.
	LatestByTenant(ctx context.Context, tenantKey string) (*domain.Summary, error)
	// ListByTenant returns up to limit events for the tenant, newest first.
	// A non-nil campaignKeys restricts results to those campaigns.
	ListByTenant(ctx context.Context, tenantKey string, campaignKeys []string, limit int) ([]*domain.LeadEvent, error)
	// CountByClub aggregates per-club lead counts for events received since the
	// given time. The most recently seen club name wins per club id.
	CountByClub(ctx context.Context, tenantKey string, since time.Time) ([]*domain.ClubCount, error)
}
