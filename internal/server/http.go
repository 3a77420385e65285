// Package server wires handlers, middleware, and routes into the HTTP surface.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	grouphandler "leadpulse/backend/internal/group/handler"
	grouprepo "leadpulse/backend/internal/group/repository"
	healthhandler "leadpulse/backend/internal/health/handler"
	leadrepo "leadpulse/backend/internal/lead/repository"
	mappinghandler "leadpulse/backend/internal/mapping/handler"
	mappingrepo "leadpulse/backend/internal/mapping/repository"
	"leadpulse/backend/internal/query"
	"leadpulse/backend/internal/stream"
	tenantrepo "leadpulse/backend/internal/tenant/repository"
	"leadpulse/backend/internal/webhook"
	drupalhandler "leadpulse/backend/internal/webhook/drupal"
	metahandler "leadpulse/backend/internal/webhook/meta"
)

// Deps holds the dependencies the router needs.
type Deps struct {
	// LeadRepo backs the read endpoints.
	LeadRepo leadrepo.Repository
	// GroupRepo backs group management and group-scoped event queries.
	GroupRepo grouprepo.Repository
	// MappingRepo backs mapping management.
	MappingRepo mappingrepo.Repository
	// TenantRepo auto-provisions tenants referenced by new mappings.
	TenantRepo tenantrepo.Repository
	// Ingestor is the shared webhook ingest pipeline.
	Ingestor *webhook.Ingestor
	// Registry owns live stream subscriptions.
	Registry *stream.Registry
	// MetaFetcher retrieves lead details for Meta deliveries.
	MetaFetcher metahandler.Fetcher
	// HealthPinger is the readiness probe target (e.g. *sql.DB).
	HealthPinger healthhandler.Pinger

	// DefaultTenantKey is used when a request carries no tenant.
	DefaultTenantKey string
	// DrupalWebhookSecret authenticates Drupal deliveries.
	DrupalWebhookSecret string
	// MetaVerifyToken answers the Meta subscription handshake.
	MetaVerifyToken string
	// MetaAppSecret verifies Meta delivery signatures.
	MetaAppSecret string
	// MetaDevMode enables the delivery signature bypass header.
	MetaDevMode bool
	// OperatorJWTSecret guards mutating operator endpoints. Empty disables the guard.
	OperatorJWTSecret string
}

// NewRouter builds the full route table.
//
// Route → handler mapping:
//   - POST /api/webhooks/drupal   → internal/webhook/drupal
//   - GET/POST /api/webhooks/meta → internal/webhook/meta
//   - GET/HEAD /api/stream        → internal/stream
//   - GET /api/events             → internal/query
//   - GET /api/grouped/clubs      → internal/query
//   - GET/POST /api/groups        → internal/group/handler
//   - POST /api/mappings          → internal/mapping/handler
//   - GET /healthz                → internal/health/handler
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()

	drupal := drupalhandler.NewHandler(deps.DrupalWebhookSecret, deps.DefaultTenantKey, deps.Ingestor)
	meta := metahandler.NewHandler(deps.MetaVerifyToken, deps.MetaAppSecret, deps.DefaultTenantKey, deps.MetaDevMode, deps.MetaFetcher, deps.Ingestor)
	queries := query.NewHandler(deps.LeadRepo, deps.GroupRepo)
	groups := grouphandler.NewHandler(deps.GroupRepo, deps.DefaultTenantKey)
	mappings := mappinghandler.NewHandler(deps.MappingRepo, deps.TenantRepo, deps.DefaultTenantKey)

	r.Handle("/api/webhooks/drupal", drupal).Methods(http.MethodPost)
	r.Handle("/api/webhooks/meta", meta).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/api/stream", stream.NewHandler(deps.Registry)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/events", queries.Events).Methods(http.MethodGet)
	r.HandleFunc("/api/grouped/clubs", queries.Clubs).Methods(http.MethodGet)
	r.Handle("/healthz", healthhandler.NewHandler(deps.HealthPinger)).Methods(http.MethodGet)

	auth := OperatorAuth(deps.OperatorJWTSecret)
	r.Handle("/api/groups", groups).Methods(http.MethodGet)
	r.Handle("/api/groups", auth(groups)).Methods(http.MethodPost)
	r.Handle("/api/mappings", auth(mappings)).Methods(http.MethodPost)

	return otelhttp.NewHandler(RequestLogging(r), "leadpulse.http")
}
