// Package meta is the lead ads webhook adapter.
//
// Deliveries are authenticated with an HMAC-SHA256 signature computed over the
// raw request bytes. The body must therefore be read once, verified as-is, and
// only then parsed; re-serializing JSON before hashing would break verification
// on any key-order or whitespace difference.
package meta

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"leadpulse/backend/internal/webhook"
	"leadpulse/backend/internal/webhook/meta/graph"

	leaddomain "leadpulse/backend/internal/lead/domain"
)

// SignatureHeader carries the delivery signature, DevBypassHeader the dev-mode escape hatch.
const (
	SignatureHeader = "x-hub-signature-256"
	DevBypassHeader = "x-dev-bypass"
)

const signaturePrefix = "sha256="

// maxBodyBytes bounds webhook payload reads.
const maxBodyBytes = 1 << 20

// Fetcher retrieves the detail record for a delivered lead id.
type Fetcher interface {
	FetchLead(ctx context.Context, leadID string) (*graph.Lead, error)
}

// Handler handles verification handshakes and lead notification batches.
type Handler struct {
	verifyToken   string
	appSecret     string
	defaultTenant string
	devMode       bool
	fetcher       Fetcher
	ingestor      *webhook.Ingestor
	nowF          func() time.Time
}

// NewHandler returns the adapter. devMode permits signature bypass via the
// x-dev-bypass header and must never be enabled in production.
func NewHandler(verifyToken, appSecret, defaultTenant string, devMode bool, fetcher Fetcher, ingestor *webhook.Ingestor) *Handler {
	return &Handler{
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		defaultTenant: defaultTenant,
		devMode:       devMode,
		fetcher:       fetcher,
		ingestor:      ingestor,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

// ServeHTTP dispatches the handshake (GET) and delivery (POST) flows.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		webhook.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// verify answers the subscription handshake by echoing hub.challenge.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" || challenge == "" {
		webhook.WriteError(w, http.StatusBadRequest, "missing hub.mode, hub.verify_token or hub.challenge")
		return
	}
	if h.verifyToken == "" {
		log.Printf("webhook: meta verify token is not configured")
		webhook.WriteError(w, http.StatusInternalServerError, "verify token is not configured")
		return
	}
	if mode != "subscribe" || token != h.verifyToken {
		webhook.WriteError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

// notification mirrors the delivery envelope; only leadgen ids are needed.
type notification struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				LeadgenID string `json:"leadgen_id"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// itemResult is the per-lead outcome in a batch response. Failures are
// isolated per item so one bad lead never drops its siblings.
type itemResult struct {
	ExternalLeadID string `json:"externalLeadId"`
	OK             bool   `json:"ok"`
	ID             string `json:"id,omitempty"`
	TenantKey      string `json:"tenantKey,omitempty"`
	CampaignKey    string `json:"campaignKey,omitempty"`
	Created        bool   `json:"created,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		webhook.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if h.devMode && strings.EqualFold(r.Header.Get(DevBypassHeader), "true") {
		log.Printf("webhook: meta signature check BYPASSED via %s header (dev mode)", DevBypassHeader)
	} else {
		if h.appSecret == "" {
			log.Printf("webhook: meta app secret is not configured")
			webhook.WriteError(w, http.StatusInternalServerError, "app secret is not configured")
			return
		}
		if !validSignature(raw, r.Header.Get(SignatureHeader), h.appSecret) {
			webhook.WriteError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var note notification
	if err := json.Unmarshal(raw, &note); err != nil {
		webhook.WriteError(w, http.StatusBadRequest, "malformed notification payload")
		return
	}

	leadIDs := leadgenIDs(&note)
	if len(leadIDs) == 0 {
		webhook.WriteJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"received": 0,
			"leadIds":  []string{},
		})
		return
	}

	tenantHint := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if tenantHint == "" {
		tenantHint = h.defaultTenant
	}

	results := make([]itemResult, 0, len(leadIDs))
	for _, leadID := range leadIDs {
		results = append(results, h.processLead(r.Context(), leadID, tenantHint))
	}

	webhook.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"received": len(leadIDs),
		"results":  results,
	})
}

// processLead fetches the lead detail and runs it through the ingest pipeline.
func (h *Handler) processLead(ctx context.Context, leadID, tenantHint string) itemResult {
	lead, err := h.fetcher.FetchLead(ctx, leadID)
	if err != nil {
		log.Printf("webhook: meta fetch lead %s: %v", leadID, err)
		return itemResult{ExternalLeadID: leadID, Error: "failed to fetch lead details"}
	}

	payload := map[string]any{}
	if len(lead.Raw) > 0 {
		if err := json.Unmarshal(lead.Raw, &payload); err != nil {
			payload = map[string]any{}
		}
	}

	in := &leaddomain.IncomingLead{
		Source:         leaddomain.SourceMeta,
		ExternalLeadID: leadID,
		FormID:         lead.FormID,
		UTMCampaign:    lead.FieldValue("utm_campaign"),
		TenantHint:     tenantHint,
		OccurredAt:     lead.OccurredAt(h.nowF()),
		RawPayload:     payload,
	}
	result, err := h.ingestor.Ingest(ctx, in)
	if err != nil {
		log.Printf("webhook: meta ingest %s: %v", leadID, err)
		return itemResult{ExternalLeadID: leadID, Error: "failed to process lead"}
	}
	return itemResult{
		ExternalLeadID: leadID,
		OK:             true,
		ID:             result.ID,
		TenantKey:      result.Resolution.TenantKey,
		CampaignKey:    result.Resolution.CampaignKey,
		Created:        result.Created,
	}
}

// validSignature verifies the sha256= HMAC over the raw body in constant time.
func validSignature(body []byte, header, secret string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

func leadgenIDs(note *notification) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, entry := range note.Entry {
		for _, change := range entry.Changes {
			id := strings.TrimSpace(change.Value.LeadgenID)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
