package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadpulse/backend/internal/group/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a group repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all groups for the tenant with their membership.
func (r *PostgresRepository) List(ctx context.Context, tenantKey string) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_key, group_key, display_name, created_at
		FROM campaign_groups
		WHERE tenant_key = $1
		ORDER BY display_name, group_key`,
		tenantKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	byID := make(map[string]*domain.Group)
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.TenantKey, &g.GroupKey, &g.DisplayName, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.CampaignKeys = []string{}
		groups = append(groups, &g)
		byID[g.ID] = &g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return groups, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT i.group_id, i.campaign_key
		FROM campaign_group_items i
		JOIN campaign_groups g ON g.id = i.group_id
		WHERE g.tenant_key = $1
		ORDER BY i.campaign_key`,
		tenantKey,
	)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var groupID, campaignKey string
		if err := itemRows.Scan(&groupID, &campaignKey); err != nil {
			return nil, err
		}
		if g, ok := byID[groupID]; ok {
			g.CampaignKeys = append(g.CampaignKeys, campaignKey)
		}
	}
	return groups, itemRows.Err()
}

// GetByTenantAndKey returns the group for (tenantKey, groupKey), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTenantAndKey(ctx context.Context, tenantKey, groupKey string) (*domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_key, group_key, display_name, created_at
		FROM campaign_groups
		WHERE tenant_key = $1 AND group_key = $2`,
		tenantKey, groupKey,
	).Scan(&g.ID, &g.TenantKey, &g.GroupKey, &g.DisplayName, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_key
		FROM campaign_group_items
		WHERE group_id = $1
		ORDER BY campaign_key`,
		g.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	g.CampaignKeys = []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		g.CampaignKeys = append(g.CampaignKeys, key)
	}
	return &g, rows.Err()
}

// Replace upserts the group row and swaps its membership inside one
// transaction, so readers never observe a partially replaced group.
func (r *PostgresRepository) Replace(ctx context.Context, g *domain.Group) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO campaign_groups (id, tenant_key, group_key, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_key, group_key)
		DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id`,
		g.ID, g.TenantKey, g.GroupKey, g.DisplayName, g.CreatedAt,
	).Scan(&groupID)
	if err != nil {
		return err
	}
	g.ID = groupID

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_group_items WHERE group_id = $1`, groupID); err != nil {
		return err
	}
	for _, key := range g.CampaignKeys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_group_items (group_id, tenant_key, campaign_key)
			VALUES ($1, $2, $3)`,
			groupID, g.TenantKey, key,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
