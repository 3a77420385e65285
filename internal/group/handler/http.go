// Package handler exposes campaign group management over HTTP.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"leadpulse/backend/internal/group/domain"
	"leadpulse/backend/internal/group/repository"
	"leadpulse/backend/internal/webhook"
)

// Handler serves GET (list) and POST (save) for campaign groups.
type Handler struct {
	repo          repository.Repository
	defaultTenant string
}

// NewHandler returns the groups handler.
func NewHandler(repo repository.Repository, defaultTenant string) *Handler {
	return &Handler{repo: repo, defaultTenant: defaultTenant}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r)
	default:
		webhook.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type groupResponse struct {
	TenantKey    string   `json:"tenantKey"`
	GroupKey     string   `json:"groupKey"`
	DisplayName  string   `json:"displayName"`
	CampaignKeys []string `json:"campaignKeys"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenant := h.tenant(r)
	groups, err := h.repo.List(r.Context(), tenant)
	if err != nil {
		log.Printf("groups: list tenant %s: %v", tenant, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{
			TenantKey:    g.TenantKey,
			GroupKey:     g.GroupKey,
			DisplayName:  g.DisplayName,
			CampaignKeys: g.CampaignKeys,
		})
	}
	webhook.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "groups": out})
}

type saveRequest struct {
	TenantKey    string   `json:"tenantKey"`
	GroupKey     string   `json:"groupKey"`
	DisplayName  string   `json:"displayName"`
	CampaignKeys []string `json:"campaignKeys"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		webhook.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.TenantKey) == "" {
		req.TenantKey = h.tenant(r)
	}

	g := &domain.Group{
		TenantKey:    req.TenantKey,
		GroupKey:     req.GroupKey,
		DisplayName:  req.DisplayName,
		CampaignKeys: req.CampaignKeys,
	}
	if err := g.Validate(); err != nil {
		webhook.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Replace(r.Context(), g); err != nil {
		log.Printf("groups: save %s/%s: %v", g.TenantKey, g.GroupKey, err)
		webhook.WriteError(w, http.StatusInternalServerError, "failed to save group")
		return
	}

	webhook.WriteJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"group": groupResponse{
			TenantKey:    g.TenantKey,
			GroupKey:     g.GroupKey,
			DisplayName:  g.DisplayName,
			CampaignKeys: g.CampaignKeys,
		},
	})
}

func (h *Handler) tenant(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("tenant")); t != "" {
		return t
	}
	return h.defaultTenant
}
