package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"leadpulse/backend/internal/telemetry"
)

// NewEventEmitter returns an EventEmitter that sends ingest events as OTel log
// records via the given LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("leadpulse.ingest")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.IngestEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the ingest event to an OTel log record and emits it. Best-effort.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.IngestEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetBody(otellog.StringValue("lead_ingested"))
	if !event.ReceivedAt.IsZero() {
		rec.SetTimestamp(event.ReceivedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if event.TenantKey != "" {
		rec.AddAttributes(otellog.String("tenant_key", event.TenantKey))
	}
	if event.CampaignKey != "" {
		rec.AddAttributes(otellog.String("campaign_key", event.CampaignKey))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("source", event.Source))
	}
	if event.ExternalLeadID != "" {
		rec.AddAttributes(otellog.String("external_lead_id", event.ExternalLeadID))
	}
	if event.Method != "" {
		rec.AddAttributes(otellog.String("attribution_method", event.Method))
	}
	rec.AddAttributes(otellog.Bool("created", event.Created))
	e.logger.Emit(ctx, rec)
	return nil
}
