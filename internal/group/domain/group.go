// Package domain holds campaign group types. A group names a set of campaign
// keys so dashboards can query related campaigns as one unit.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Group is a named set of campaign keys owned by a tenant. Unique on
// (TenantKey, GroupKey); membership is replaced wholesale on save.
type Group struct {
	ID           string
	TenantKey    string
	GroupKey     string
	DisplayName  string
	CampaignKeys []string
	CreatedAt    time.Time
}

// Validate validates the group for persistence. It trims and deduplicates the
// campaign keys; an empty membership is valid.
func (g *Group) Validate() error {
	g.TenantKey = strings.TrimSpace(g.TenantKey)
	g.GroupKey = strings.TrimSpace(g.GroupKey)
	g.DisplayName = strings.TrimSpace(g.DisplayName)
	if g.TenantKey == "" {
		return errors.New("tenant key is required")
	}
	if g.GroupKey == "" {
		return errors.New("group key is required")
	}
	if g.DisplayName == "" {
		return errors.New("display name is required")
	}

	seen := make(map[string]struct{}, len(g.CampaignKeys))
	keys := make([]string, 0, len(g.CampaignKeys))
	for _, k := range g.CampaignKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	g.CampaignKeys = keys
	return nil
}
