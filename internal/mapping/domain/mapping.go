package domain

import (
	"errors"
	"strings"
	"time"

	leaddomain "leadpulse/backend/internal/lead/domain"
)

// Mapping is an operator-configured attribution rule translating
// (tenant, source, form) to a campaign. Unique on (TenantKey, Source, FormID).
type Mapping struct {
	ID          string
	TenantKey   string
	Source      leaddomain.Source
	FormID      string
	CampaignKey string
	// ForceTenantKey, when set, overrides the request's tenant hint for matches.
	ForceTenantKey *string
	CreatedAt      time.Time
}

// Validate validates the mapping for persistence. Returns an error describing the first validation failure.
func (m *Mapping) Validate() error {
	m.TenantKey = strings.TrimSpace(m.TenantKey)
	m.FormID = strings.TrimSpace(m.FormID)
	m.CampaignKey = strings.TrimSpace(m.CampaignKey)
	if m.TenantKey == "" {
		return errors.New("tenant key is required")
	}
	if !leaddomain.ValidSource(m.Source) {
		return errors.New("unknown source")
	}
	if m.FormID == "" {
		return errors.New("form id is required")
	}
	if m.CampaignKey == "" {
		return errors.New("campaign key is required")
	}
	return nil
}
