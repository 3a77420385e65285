// Package domain holds the canonical lead types shared by adapters, storage, and queries.
package domain

import (
	"errors"
	"time"
)

// Source identifies the external system that produced a lead.
type Source string

const (
	SourceDrupal Source = "drupal"
	SourceMeta   Source = "meta"
)

// ValidSource reports whether s is a known lead source.
func ValidSource(s Source) bool {
	return s == SourceDrupal || s == SourceMeta
}

// CampaignUnknown is the terminal campaign key when attribution cannot resolve a
// campaign. It is a valid business outcome, not an error.
const CampaignUnknown = "unknown"

// IncomingLead is the normalized output of a source adapter. It is ephemeral;
// only the LeadEvent built from it is persisted.
type IncomingLead struct {
	Source         Source
	ExternalLeadID string
	FormID         string
	UTMCampaign    string
	TenantHint     string
	OccurredAt     time.Time
	// RawPayload is the source payload, preserved verbatim for audit/debugging.
	RawPayload map[string]any
}

// LeadEvent is the canonical, persisted record. Immutable once created;
// redelivery of the same (Source, ExternalLeadID) is a no-op.
type LeadEvent struct {
	ID             string
	TenantKey      string
	CampaignKey    string
	Source         Source
	ExternalLeadID string
	// Display fields derived from the payload for presentation only; not authoritative.
	FormID   *string
	Email    *string
	Phone    *string
	ClubID   *string
	ClubName *string

	OccurredAt time.Time
	ReceivedAt time.Time
	RawPayload []byte // JSONB
}

// Validate validates the event for persistence. Returns an error describing the first validation failure.
func (e *LeadEvent) Validate() error {
	if e.TenantKey == "" {
		return errors.New("tenant key is required")
	}
	if !ValidSource(e.Source) {
		return errors.New("unknown source")
	}
	if e.ExternalLeadID == "" {
		return errors.New("external lead id is required")
	}
	if e.CampaignKey == "" {
		e.CampaignKey = CampaignUnknown
	}
	return nil
}

// Summary is the subset of a LeadEvent carried by change notifications and
// used by the change detector's baseline cursor.
type Summary struct {
	ID          string
	TenantKey   string
	CampaignKey string
	Source      Source
	ReceivedAt  time.Time
}

// ClubCount is a per-club lead count over a time window.
type ClubCount struct {
	ClubID   string
	ClubName string
	Leads    int64
}
