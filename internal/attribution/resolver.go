// Package attribution maps a raw submission to a (tenant, campaign) pair.
//
// Precedence is strict: a UTM campaign always wins and needs no lookup; an
// operator mapping on (tenant, source, form) comes second; everything else
// resolves to "unknown", which is a valid terminal outcome, not an error.
package attribution

import (
	"context"
	"strings"

	leaddomain "leadpulse/backend/internal/lead/domain"
	mappingdomain "leadpulse/backend/internal/mapping/domain"
)

// Method records which rule produced a resolution.
type Method string

const (
	MethodUTM     Method = "utm"
	MethodMapping Method = "mapping"
	MethodUnknown Method = "unknown"
)

// Result is the outcome of resolving one submission.
type Result struct {
	TenantKey   string
	CampaignKey string
	Used        Method
}

// MappingReader is the read-only mapping access the resolver needs.
type MappingReader interface {
	GetByTenantSourceForm(ctx context.Context, tenantKey string, source leaddomain.Source, formID string) (*mappingdomain.Mapping, error)
}

// Resolver resolves campaign and tenant attribution for incoming leads.
// Stateless; safe for concurrent use. Mapping reads are not transactionally
// joined with the subsequent lead write; attribution is best-effort.
type Resolver struct {
	mappings MappingReader
}

// NewResolver returns a resolver backed by the given mapping reader.
func NewResolver(mappings MappingReader) *Resolver {
	return &Resolver{mappings: mappings}
}

// Resolve maps (source, tenant hint, form id, utm campaign) to a tenant and
// campaign. Errors are returned only for mapping read failures; a missing
// mapping resolves to ("unknown", MethodUnknown).
func (r *Resolver) Resolve(ctx context.Context, source leaddomain.Source, tenantHint, formID, utmCampaign string) (Result, error) {
	tenantKey := strings.TrimSpace(tenantHint)
	utm := strings.TrimSpace(utmCampaign)
	form := strings.TrimSpace(formID)

	if utm != "" {
		return Result{TenantKey: tenantKey, CampaignKey: utm, Used: MethodUTM}, nil
	}

	if form == "" {
		return Result{TenantKey: tenantKey, CampaignKey: leaddomain.CampaignUnknown, Used: MethodUnknown}, nil
	}

	m, err := r.mappings.GetByTenantSourceForm(ctx, tenantKey, source, form)
	if err != nil {
		return Result{}, err
	}
	if m == nil {
		return Result{TenantKey: tenantKey, CampaignKey: leaddomain.CampaignUnknown, Used: MethodUnknown}, nil
	}

	finalTenant := tenantKey
	if m.ForceTenantKey != nil {
		if forced := strings.TrimSpace(*m.ForceTenantKey); forced != "" {
			finalTenant = forced
		}
	}
	return Result{TenantKey: finalTenant, CampaignKey: m.CampaignKey, Used: MethodMapping}, nil
}
