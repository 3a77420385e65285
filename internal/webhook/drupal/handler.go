// Package drupal is the form-submission webhook adapter.
//
// Auth is a shared-secret comparison: the caller supplies the secret via the
// x-webhook-secret header or the secret query parameter (header wins). A
// missing server-side secret is a misconfiguration (500), never an auth
// failure (401); conflating the two would hide deployment mistakes behind
// "attack" noise.
package drupal

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"leadpulse/backend/internal/webhook"

	leaddomain "leadpulse/backend/internal/lead/domain"
)

// SecretHeader carries the webhook secret; the query parameter is the fallback.
const (
	SecretHeader = "x-webhook-secret"
	secretQuery  = "secret"
)

// maxDebugKeys caps the keys-only peek returned with a 400.
const maxDebugKeys = 80

// Handler handles Drupal-style form submission deliveries.
type Handler struct {
	secret        string
	defaultTenant string
	ingestor      *webhook.Ingestor
}

// NewHandler returns the adapter. secret may be empty; the handler then reports
// misconfiguration on every request rather than refusing to start.
func NewHandler(secret, defaultTenant string, ingestor *webhook.Ingestor) *Handler {
	return &Handler{secret: secret, defaultTenant: defaultTenant, ingestor: ingestor}
}

// ServeHTTP handles POST deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		log.Printf("webhook: drupal secret is not configured")
		webhook.WriteError(w, http.StatusInternalServerError, "webhook secret is not configured")
		return
	}
	provided := r.Header.Get(SecretHeader)
	if provided == "" {
		provided = r.URL.Query().Get(secretQuery)
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		webhook.WriteError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	body, err := webhook.ParseBody(r)
	if err != nil {
		webhook.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	externalLeadID := webhook.ExternalLeadID(body.Fields)
	if externalLeadID == "" {
		webhook.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "missing external lead id (no submission id found in payload)",
			"debug": map[string]any{
				"contentType": body.ContentType,
				"keys":        body.Keys(maxDebugKeys),
				"rawLength":   len(body.RawText),
			},
		})
		return
	}

	in := &leaddomain.IncomingLead{
		Source:         leaddomain.SourceDrupal,
		ExternalLeadID: externalLeadID,
		FormID:         webhook.FormID(body.Fields),
		UTMCampaign:    webhook.UTMCampaign(body.Fields),
		TenantHint:     h.tenantHint(r, body.Fields),
		RawPayload:     body.Fields,
	}

	result, err := h.ingestor.Ingest(r.Context(), in)
	if err != nil {
		log.Printf("webhook: drupal ingest %s: %v", externalLeadID, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to process submission")
		return
	}

	webhook.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"tenantKey":   result.Resolution.TenantKey,
		"campaignKey": result.Resolution.CampaignKey,
		"mappingUsed": string(result.Resolution.Used),
		"id":          result.ID,
	})
}

// tenantHint picks the tenant: query param, then body, then the configured default.
func (h *Handler) tenantHint(r *http.Request, fields map[string]any) string {
	if t := strings.TrimSpace(r.URL.Query().Get("tenant")); t != "" {
		return t
	}
	if t := leaddomain.FirstField(fields, []string{"tenantKey", "tenant"}); t != "" {
		return t
	}
	return h.defaultTenant
}
