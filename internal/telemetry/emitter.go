// Package telemetry emits best-effort ingestion events (e.g. to OTel Logs).
package telemetry

import (
	"context"
	"time"
)

// IngestEvent describes one processed lead delivery.
type IngestEvent struct {
	TenantKey      string
	CampaignKey    string
	Source         string
	ExternalLeadID string
	// Method is how attribution resolved ("utm", "mapping", "unknown").
	Method string
	// Created is false for redeliveries absorbed by the idempotent upsert.
	Created    bool
	ReceivedAt time.Time
}

// EventEmitter emits ingestion events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *IngestEvent) error
}
