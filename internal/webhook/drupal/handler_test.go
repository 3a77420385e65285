package drupal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"leadpulse/backend/internal/attribution"
	leaddomain "leadpulse/backend/internal/lead/domain"
	mappingdomain "leadpulse/backend/internal/mapping/domain"
	"leadpulse/backend/internal/webhook"
)

// fakeLeadStore implements webhook.LeadWriter with in-memory idempotency.
type fakeLeadStore struct {
	mu     sync.Mutex
	events map[string]*leaddomain.LeadEvent // keyed by source|externalLeadId
	nextID int
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{events: make(map[string]*leaddomain.LeadEvent)}
}

func (s *fakeLeadStore) Upsert(ctx context.Context, e *leaddomain.LeadEvent) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(e.Source) + "|" + e.ExternalLeadID
	if existing, ok := s.events[key]; ok {
		return existing.ID, false, nil
	}
	s.nextID++
	e.ID = "lead-" + strconv.Itoa(s.nextID)
	s.events[key] = e
	return e.ID, true, nil
}

type fakeTenants struct {
	ensured []string
}

func (f *fakeTenants) Ensure(ctx context.Context, tenantKey string) error {
	f.ensured = append(f.ensured, tenantKey)
	return nil
}

type fakeMappings struct {
	mappings []*mappingdomain.Mapping
}

func (f *fakeMappings) GetByTenantSourceForm(ctx context.Context, tenantKey string, source leaddomain.Source, formID string) (*mappingdomain.Mapping, error) {
	for _, m := range f.mappings {
		if m.TenantKey == tenantKey && m.Source == source && m.FormID == formID {
			return m, nil
		}
	}
	return nil, nil
}

func newTestHandler(secret string, mappings *fakeMappings) (*Handler, *fakeLeadStore) {
	store := newFakeLeadStore()
	if mappings == nil {
		mappings = &fakeMappings{}
	}
	ingestor := webhook.NewIngestor(attribution.NewResolver(mappings), store, &fakeTenants{}, nil)
	return NewHandler(secret, "default", ingestor), store
}

func postJSON(h *Handler, target, body string, header map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandler_UnconfiguredSecretIsServerError(t *testing.T) {
	h, _ := newTestHandler("", nil)

	w := postJSON(h, "/api/webhooks/drupal", `{"sid":"s1"}`, map[string]string{SecretHeader: "anything"})
	if w.Code != 500 {
		t.Errorf("status = %d, want 500 (misconfiguration, not auth failure)", w.Code)
	}
}

func TestHandler_BadSecretIsUnauthorized(t *testing.T) {
	h, _ := newTestHandler("right", nil)

	w := postJSON(h, "/api/webhooks/drupal", `{"sid":"s1"}`, map[string]string{SecretHeader: "wrong"})
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}

	w = postJSON(h, "/api/webhooks/drupal", `{"sid":"s1"}`, nil)
	if w.Code != 401 {
		t.Errorf("status with missing secret = %d, want 401", w.Code)
	}
}

func TestHandler_HeaderSecretWinsOverQuery(t *testing.T) {
	h, _ := newTestHandler("right", nil)

	// Wrong header beats right query param.
	w := postJSON(h, "/api/webhooks/drupal?secret=right", `{"sid":"s1"}`, map[string]string{SecretHeader: "wrong"})
	if w.Code != 401 {
		t.Errorf("status = %d, want 401 (header takes precedence)", w.Code)
	}

	// Query param alone works.
	w = postJSON(h, "/api/webhooks/drupal?secret=right", `{"sid":"s1"}`, nil)
	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandler_MissingExternalLeadID(t *testing.T) {
	h, _ := newTestHandler("s", nil)

	w := postJSON(h, "/api/webhooks/drupal", `{"some":"field"}`, map[string]string{SecretHeader: "s"})
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if resp["ok"] != false {
		t.Error("response ok should be false")
	}
}

func TestHandler_SuccessWithMapping(t *testing.T) {
	h, _ := newTestHandler("s", &fakeMappings{mappings: []*mappingdomain.Mapping{
		{TenantKey: "t1", Source: leaddomain.SourceDrupal, FormID: "f1", CampaignKey: "camp-a"},
	}})

	w := postJSON(h, "/api/webhooks/drupal?tenant=t1", `{"sid":"s1","webform_id":"f1"}`, map[string]string{SecretHeader: "s"})
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if resp["campaignKey"] != "camp-a" {
		t.Errorf("campaignKey = %v, want %q", resp["campaignKey"], "camp-a")
	}
	if resp["mappingUsed"] != "mapping" {
		t.Errorf("mappingUsed = %v, want %q", resp["mappingUsed"], "mapping")
	}
	if resp["tenantKey"] != "t1" {
		t.Errorf("tenantKey = %v, want %q", resp["tenantKey"], "t1")
	}
	if resp["id"] == "" || resp["id"] == nil {
		t.Error("id should be set")
	}
}

func TestHandler_UTMBeatsMapping(t *testing.T) {
	h, _ := newTestHandler("s", &fakeMappings{mappings: []*mappingdomain.Mapping{
		{TenantKey: "t1", Source: leaddomain.SourceDrupal, FormID: "f1", CampaignKey: "camp-a"},
	}})

	w := postJSON(h, "/api/webhooks/drupal?tenant=t1", `{"sid":"s1","webform_id":"f1","utm_campaign":"summer24"}`, map[string]string{SecretHeader: "s"})
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["campaignKey"] != "summer24" || resp["mappingUsed"] != "utm" {
		t.Errorf("got (%v, %v), want (summer24, utm)", resp["campaignKey"], resp["mappingUsed"])
	}
}

func TestHandler_RedeliveryReturnsSameID(t *testing.T) {
	h, store := newTestHandler("s", nil)

	w1 := postJSON(h, "/api/webhooks/drupal", `{"sid":"dup-1"}`, map[string]string{SecretHeader: "s"})
	w2 := postJSON(h, "/api/webhooks/drupal", `{"sid":"dup-1"}`, map[string]string{SecretHeader: "s"})
	if w1.Code != 200 || w2.Code != 200 {
		t.Fatalf("statuses = %d, %d, want 200, 200", w1.Code, w2.Code)
	}

	var r1, r2 map[string]any
	_ = json.Unmarshal(w1.Body.Bytes(), &r1)
	_ = json.Unmarshal(w2.Body.Bytes(), &r2)
	if r1["id"] != r2["id"] {
		t.Errorf("redelivery id = %v, want %v", r2["id"], r1["id"])
	}
	if len(store.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(store.events))
	}
}

func TestHandler_FormURLEncodedBody(t *testing.T) {
	h, _ := newTestHandler("s", nil)

	r := httptest.NewRequest("POST", "/api/webhooks/drupal", strings.NewReader("submission_id=s9&tenant=t2"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set(SecretHeader, "s")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["tenantKey"] != "t2" {
		t.Errorf("tenantKey = %v, want body hint %q", resp["tenantKey"], "t2")
	}
}
