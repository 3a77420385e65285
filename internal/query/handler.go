// Package query serves read endpoints over the lead event log: recent events
// for a tenant (optionally scoped to a campaign group) and per-club counts
// over a rolling window.
package query

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	grouprepo "leadpulse/backend/internal/group/repository"
	leaddomain "leadpulse/backend/internal/lead/domain"
	leadrepo "leadpulse/backend/internal/lead/repository"
	"leadpulse/backend/internal/webhook"
)

// Limit bounds for the events listing.
const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

// Window bounds for the club aggregation, in days.
const (
	defaultClubDays = 7
	maxClubDays     = 365
)

// Handler serves the read endpoints.
type Handler struct {
	leads  leadrepo.Repository
	groups grouprepo.Repository
	nowF   func() time.Time
}

// NewHandler returns the query handler.
func NewHandler(leads leadrepo.Repository, groups grouprepo.Repository) *Handler {
	return &Handler{leads: leads, groups: groups, nowF: func() time.Time { return time.Now().UTC() }}
}

type eventResponse struct {
	ID          string `json:"id"`
	TenantKey   string `json:"tenantKey"`
	CampaignKey string `json:"campaignKey"`
	Source      string `json:"source"`
	FormID      string `json:"formId,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ClubID      string `json:"clubId,omitempty"`
	ClubName    string `json:"clubName,omitempty"`
	OccurredAt  string `json:"occurredAt"`
	ReceivedAt  string `json:"receivedAt"`
}

// Events handles GET /api/events: the newest events for ?tenant=, optionally
// restricted to the campaigns of ?group=, up to ?limit=.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if tenant == "" {
		webhook.WriteError(w, http.StatusBadRequest, "tenant query parameter is required")
		return
	}

	var campaignKeys []string
	if groupKey := strings.TrimSpace(r.URL.Query().Get("group")); groupKey != "" {
		group, err := h.groups.GetByTenantAndKey(r.Context(), tenant, groupKey)
		if err != nil {
			log.Printf("query: load group %s/%s: %v", tenant, groupKey, err)
			webhook.WriteError(w, http.StatusInternalServerError, "failed to load group")
			return
		}
		if group == nil {
			webhook.WriteError(w, http.StatusBadRequest, "unknown group")
			return
		}
		if len(group.CampaignKeys) == 0 {
			// An empty group legitimately matches nothing.
			webhook.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "events": []eventResponse{}})
			return
		}
		campaignKeys = group.CampaignKeys
	}

	limit := clampInt(r.URL.Query().Get("limit"), defaultEventLimit, 1, maxEventLimit)

	events, err := h.leads.ListByTenant(r.Context(), tenant, campaignKeys, limit)
	if err != nil {
		log.Printf("query: list events tenant %s: %v", tenant, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	webhook.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "events": out})
}

// Clubs handles GET /api/grouped/clubs: per-club lead counts for ?tenant=
// over the last ?days=.
func (h *Handler) Clubs(w http.ResponseWriter, r *http.Request) {
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if tenant == "" {
		webhook.WriteError(w, http.StatusBadRequest, "tenant query parameter is required")
		return
	}

	days := clampInt(r.URL.Query().Get("days"), defaultClubDays, 1, maxClubDays)
	since := h.nowF().Add(-time.Duration(days) * 24 * time.Hour)

	counts, err := h.leads.CountByClub(r.Context(), tenant, since)
	if err != nil {
		log.Printf("query: club counts tenant %s: %v", tenant, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to aggregate clubs")
		return
	}

	type row struct {
		ClubID   string `json:"clubId"`
		ClubName string `json:"clubName"`
		Leads    int64  `json:"leads"`
	}
	rows := make([]row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, row{ClubID: c.ClubID, ClubName: c.ClubName, Leads: c.Leads})
	}
	webhook.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "days": days, "rows": rows})
}

// toEventResponse renders an event, recovering display fields from the raw
// payload when the stored columns are empty.
func toEventResponse(e *leaddomain.LeadEvent) eventResponse {
	resp := eventResponse{
		ID:          e.ID,
		TenantKey:   e.TenantKey,
		CampaignKey: e.CampaignKey,
		Source:      string(e.Source),
		FormID:      deref(e.FormID),
		Email:       deref(e.Email),
		Phone:       deref(e.Phone),
		ClubID:      deref(e.ClubID),
		ClubName:    deref(e.ClubName),
		OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339),
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
	}
	if (resp.ClubName == "" || resp.Email == "") && len(e.RawPayload) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(e.RawPayload, &payload); err == nil {
			derived := leaddomain.DeriveDisplayFields(payload)
			if resp.ClubName == "" {
				resp.ClubName = derived.ClubName
			}
			if resp.Email == "" {
				resp.Email = derived.Email
			}
		}
	}
	return resp
}

// clampInt parses s into [min, max], falling back to def when absent or malformed.
func clampInt(s string, def, min, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
