package query

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	groupdomain "leadpulse/backend/internal/group/domain"
	leaddomain "leadpulse/backend/internal/lead/domain"
)

// fakeLeads returns canned events and records the arguments of the last call.
type fakeLeads struct {
	events []*leaddomain.LeadEvent
	counts []*leaddomain.ClubCount

	gotCampaignKeys []string
	gotLimit        int
	gotSince        time.Time
}

func (f *fakeLeads) Upsert(ctx context.Context, e *leaddomain.LeadEvent) (string, bool, error) {
	return "", false, nil
}

func (f *fakeLeads) LatestByTenant(ctx context.Context, tenantKey string) (*leaddomain.Summary, error) {
	return nil, nil
}

func (f *fakeLeads) ListByTenant(ctx context.Context, tenantKey string, campaignKeys []string, limit int) ([]*leaddomain.LeadEvent, error) {
	f.gotCampaignKeys = campaignKeys
	f.gotLimit = limit
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeLeads) CountByClub(ctx context.Context, tenantKey string, since time.Time) ([]*leaddomain.ClubCount, error) {
	f.gotSince = since
	return f.counts, nil
}

type fakeGroups struct {
	groups map[string]*groupdomain.Group
}

func (f *fakeGroups) List(ctx context.Context, tenantKey string) ([]*groupdomain.Group, error) {
	return nil, nil
}

func (f *fakeGroups) GetByTenantAndKey(ctx context.Context, tenantKey, groupKey string) (*groupdomain.Group, error) {
	if g, ok := f.groups[tenantKey+"|"+groupKey]; ok {
		return g, nil
	}
	return nil, nil
}

func (f *fakeGroups) Replace(ctx context.Context, g *groupdomain.Group) error { return nil }

func event(id, campaign string) *leaddomain.LeadEvent {
	return &leaddomain.LeadEvent{
		ID:             id,
		TenantKey:      "t1",
		CampaignKey:    campaign,
		Source:         leaddomain.SourceDrupal,
		ExternalLeadID: "ext-" + id,
		OccurredAt:     time.Now().UTC(),
		ReceivedAt:     time.Now().UTC(),
	}
}

func TestEvents_RequiresTenant(t *testing.T) {
	h := NewHandler(&fakeLeads{}, &fakeGroups{})

	w := httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events", nil))
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvents_LimitClamping(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"default", "", 20},
		{"explicit", "&limit=50", 50},
		{"above max", "&limit=9999", 200},
		{"below min", "&limit=0", 1},
		{"negative", "&limit=-5", 1},
		{"garbage", "&limit=abc", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads := &fakeLeads{}
			h := NewHandler(leads, &fakeGroups{})
			w := httptest.NewRecorder()
			h.Events(w, httptest.NewRequest("GET", "/api/events?tenant=t1"+tt.query, nil))
			if w.Code != 200 {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if leads.gotLimit != tt.want {
				t.Errorf("limit = %d, want %d", leads.gotLimit, tt.want)
			}
		})
	}
}

func TestEvents_UnknownGroup(t *testing.T) {
	h := NewHandler(&fakeLeads{}, &fakeGroups{})

	w := httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events?tenant=t1&group=nope", nil))
	if w.Code != 400 {
		t.Errorf("status = %d, want 400 for unknown group", w.Code)
	}
}

func TestEvents_EmptyGroupMatchesNothing(t *testing.T) {
	groups := &fakeGroups{groups: map[string]*groupdomain.Group{
		"t1|empty": {TenantKey: "t1", GroupKey: "empty", DisplayName: "Empty", CampaignKeys: []string{}},
	}}
	leads := &fakeLeads{events: []*leaddomain.LeadEvent{event("1", "a")}}
	h := NewHandler(leads, groups)

	w := httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events?tenant=t1&group=empty", nil))
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Events []any `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 0 {
		t.Errorf("events = %v, want empty (empty group matches nothing)", resp.Events)
	}
	if leads.gotLimit != 0 {
		t.Error("repository was queried despite empty group")
	}
}

func TestEvents_GroupScopesCampaigns(t *testing.T) {
	groups := &fakeGroups{groups: map[string]*groupdomain.Group{
		"t1|spring": {TenantKey: "t1", GroupKey: "spring", DisplayName: "Spring", CampaignKeys: []string{"a", "b"}},
	}}
	leads := &fakeLeads{events: []*leaddomain.LeadEvent{event("1", "a"), event("2", "b")}}
	h := NewHandler(leads, groups)

	w := httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events?tenant=t1&group=spring", nil))
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(leads.gotCampaignKeys) != 2 {
		t.Errorf("campaignKeys = %v, want the group's 2 campaigns", leads.gotCampaignKeys)
	}
}

func TestEvents_ClubNameFallsBackToRawPayload(t *testing.T) {
	e := event("1", "a")
	e.RawPayload = []byte(`{"klubnavn":"Aarhus Nord","email":"x@y.dk"}`)
	leads := &fakeLeads{events: []*leaddomain.LeadEvent{e}}
	h := NewHandler(leads, &fakeGroups{})

	w := httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events?tenant=t1", nil))

	var resp struct {
		Events []struct {
			ClubName string `json:"clubName"`
			Email    string `json:"email"`
		} `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events count = %d, want 1", len(resp.Events))
	}
	if resp.Events[0].ClubName != "Aarhus Nord" {
		t.Errorf("clubName = %q, want %q (derived from raw payload)", resp.Events[0].ClubName, "Aarhus Nord")
	}
	if resp.Events[0].Email != "x@y.dk" {
		t.Errorf("email = %q, want %q", resp.Events[0].Email, "x@y.dk")
	}
}

func TestClubs_WindowClamping(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    string
		wantDays int
	}{
		{"default", "", 7},
		{"explicit", "&days=30", 30},
		{"above max", "&days=4000", 365},
		{"below min", "&days=0", 1},
		{"garbage", "&days=xx", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads := &fakeLeads{}
			h := NewHandler(leads, &fakeGroups{})
			h.nowF = func() time.Time { return now }

			w := httptest.NewRecorder()
			h.Clubs(w, httptest.NewRequest("GET", "/api/grouped/clubs?tenant=t1"+tt.query, nil))
			if w.Code != 200 {
				t.Fatalf("status = %d, want 200", w.Code)
			}

			wantSince := now.Add(-time.Duration(tt.wantDays) * 24 * time.Hour)
			if !leads.gotSince.Equal(wantSince) {
				t.Errorf("since = %v, want %v", leads.gotSince, wantSince)
			}
			var resp struct {
				Days int `json:"days"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Days != tt.wantDays {
				t.Errorf("days = %d, want %d", resp.Days, tt.wantDays)
			}
		})
	}
}

func TestClubs_Rows(t *testing.T) {
	leads := &fakeLeads{counts: []*leaddomain.ClubCount{
		{ClubID: "c1", ClubName: "Aarhus Nord", Leads: 12},
		{ClubID: "c2", ClubName: "Odense", Leads: 3},
	}}
	h := NewHandler(leads, &fakeGroups{})

	w := httptest.NewRecorder()
	h.Clubs(w, httptest.NewRequest("GET", "/api/grouped/clubs?tenant=t1", nil))
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Rows []struct {
			ClubID string `json:"clubId"`
			Leads  int64  `json:"leads"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("rows count = %d, want 2", len(resp.Rows))
	}
	if resp.Rows[0].ClubID != "c1" || resp.Rows[0].Leads != 12 {
		t.Errorf("row[0] = %+v, want c1 with 12 leads", resp.Rows[0])
	}
}
