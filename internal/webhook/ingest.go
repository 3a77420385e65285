package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"leadpulse/backend/internal/attribution"
	leaddomain "leadpulse/backend/internal/lead/domain"
	"leadpulse/backend/internal/telemetry"
)

// LeadWriter is the minimal lead store access the ingest path needs.
type LeadWriter interface {
	Upsert(ctx context.Context, e *leaddomain.LeadEvent) (id string, created bool, err error)
}

// TenantEnsurer creates tenants on first reference.
type TenantEnsurer interface {
	Ensure(ctx context.Context, tenantKey string) error
}

// Ingestor runs the shared adapter tail: resolve attribution, ensure the
// tenant, persist idempotently, and emit telemetry. Stateless between requests.
type Ingestor struct {
	resolver *attribution.Resolver
	leads    LeadWriter
	tenants  TenantEnsurer
	emitter  telemetry.EventEmitter
	nowF     func() time.Time
}

// NewIngestor returns an Ingestor. emitter may be nil (telemetry disabled).
func NewIngestor(resolver *attribution.Resolver, leads LeadWriter, tenants TenantEnsurer, emitter telemetry.EventEmitter) *Ingestor {
	return &Ingestor{
		resolver: resolver,
		leads:    leads,
		tenants:  tenants,
		emitter:  emitter,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// IngestResult reports the stored event and how it was attributed.
type IngestResult struct {
	ID         string
	Created    bool
	Resolution attribution.Result
}

// Ingest attributes and persists one normalized lead. Redelivery of the same
// (source, external id) returns the existing id with Created=false.
func (i *Ingestor) Ingest(ctx context.Context, in *leaddomain.IncomingLead) (*IngestResult, error) {
	resolved, err := i.resolver.Resolve(ctx, in.Source, in.TenantHint, in.FormID, in.UTMCampaign)
	if err != nil {
		return nil, fmt.Errorf("resolve attribution: %w", err)
	}

	if err := i.tenants.Ensure(ctx, resolved.TenantKey); err != nil {
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	raw, err := json.Marshal(in.RawPayload)
	if err != nil {
		// Payload came out of a JSON decoder; this only fires for non-JSON values.
		log.Printf("webhook: marshal raw payload for %s/%s: %v", in.Source, in.ExternalLeadID, err)
		raw = []byte("{}")
	}
	display := leaddomain.DeriveDisplayFields(in.RawPayload)

	now := i.nowF()
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	event := &leaddomain.LeadEvent{
		TenantKey:      resolved.TenantKey,
		CampaignKey:    resolved.CampaignKey,
		Source:         in.Source,
		ExternalLeadID: in.ExternalLeadID,
		FormID:         optional(in.FormID),
		Email:          optional(display.Email),
		Phone:          optional(display.Phone),
		ClubID:         optional(display.ClubID),
		ClubName:       optional(display.ClubName),
		OccurredAt:     occurredAt,
		ReceivedAt:     now,
		RawPayload:     raw,
	}

	id, created, err := i.leads.Upsert(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("persist lead event: %w", err)
	}

	telemetry.EmitAsync(i.emitter, ctx, &telemetry.IngestEvent{
		TenantKey:      resolved.TenantKey,
		CampaignKey:    resolved.CampaignKey,
		Source:         string(in.Source),
		ExternalLeadID: in.ExternalLeadID,
		Method:         string(resolved.Used),
		Created:        created,
		ReceivedAt:     now,
	})

	return &IngestResult{ID: id, Created: created, Resolution: resolved}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
