// Package handler exposes attribution mapping management over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	leaddomain "leadpulse/backend/internal/lead/domain"
	"leadpulse/backend/internal/mapping/domain"
	"leadpulse/backend/internal/mapping/repository"
	tenantrepo "leadpulse/backend/internal/tenant/repository"
	"leadpulse/backend/internal/webhook"
)

// Handler serves POST /api/mappings.
type Handler struct {
	repo          repository.Repository
	tenants       tenantrepo.Repository
	defaultTenant string
}

// NewHandler returns the mappings handler.
func NewHandler(repo repository.Repository, tenants tenantrepo.Repository, defaultTenant string) *Handler {
	return &Handler{repo: repo, tenants: tenants, defaultTenant: defaultTenant}
}

type createRequest struct {
	TenantKey      string `json:"tenantKey"`
	Source         string `json:"source"`
	FormID         string `json:"formId"`
	CampaignKey    string `json:"campaignKey"`
	ForceTenantKey string `json:"forceTenantKey"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		webhook.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		webhook.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.TenantKey) == "" {
		req.TenantKey = h.defaultTenant
	}

	m := &domain.Mapping{
		TenantKey:   req.TenantKey,
		Source:      leaddomain.Source(strings.TrimSpace(req.Source)),
		FormID:      req.FormID,
		CampaignKey: req.CampaignKey,
	}
	if force := strings.TrimSpace(req.ForceTenantKey); force != "" {
		m.ForceTenantKey = &force
	}
	if err := m.Validate(); err != nil {
		webhook.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tenants.Ensure(r.Context(), m.TenantKey); err != nil {
		log.Printf("mappings: ensure tenant %s: %v", m.TenantKey, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to create mapping")
		return
	}

	if err := h.repo.Create(r.Context(), m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			webhook.WriteError(w, http.StatusConflict, "mapping already exists for this tenant, source and form")
			return
		}
		log.Printf("mappings: create %s/%s/%s: %v", m.TenantKey, m.Source, m.FormID, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to create mapping")
		return
	}

	webhook.WriteJSON(w, http.StatusCreated, map[string]any{
		"ok": true,
		"mapping": map[string]any{
			"id":          m.ID,
			"tenantKey":   m.TenantKey,
			"source":      string(m.Source),
			"formId":      m.FormID,
			"campaignKey": m.CampaignKey,
		},
	})
}
