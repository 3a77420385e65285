package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpulse/backend/internal/config"
	"leadpulse/backend/internal/db"
	grouprepo "leadpulse/backend/internal/group/repository"
	leadrepo "leadpulse/backend/internal/lead/repository"

	"leadpulse/backend/internal/attribution"
	mappingrepo "leadpulse/backend/internal/mapping/repository"
	"leadpulse/backend/internal/server"
	"leadpulse/backend/internal/stream"
	"leadpulse/backend/internal/telemetry"
	otelsetup "leadpulse/backend/internal/telemetry/otel"
	tenantrepo "leadpulse/backend/internal/tenant/repository"
	"leadpulse/backend/internal/webhook"
	"leadpulse/backend/internal/webhook/meta/graph"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "leadpulse-backend", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	leads := leadrepo.NewPostgresRepository(database)
	tenants := tenantrepo.NewPostgresRepository(database)
	mappings := mappingrepo.NewPostgresRepository(database)
	groups := grouprepo.NewPostgresRepository(database)

	resolver := attribution.NewResolver(mappings)
	ingestor := webhook.NewIngestor(resolver, leads, tenants, emitter)

	if cfg.MetaDevMode {
		log.Printf("META_DEV_MODE is enabled: Meta signature checks can be bypassed and Graph fetches return canned leads")
	}
	fetcher := graph.NewClient(cfg.MetaAccessToken, cfg.MetaGraphBaseURL, cfg.GraphFetchTimeout(), cfg.GraphMaxRetries, cfg.MetaDevMode)

	registry := stream.NewRegistry(leads, cfg.PollInterval(), cfg.KeepAliveInterval())

	if cfg.OperatorJWTSecret == "" {
		log.Printf("OPERATOR_JWT_SECRET is not set: operator endpoints accept unauthenticated requests")
	}

	router := server.NewRouter(server.Deps{
		LeadRepo:            leads,
		GroupRepo:           groups,
		MappingRepo:         mappings,
		TenantRepo:          tenants,
		Ingestor:            ingestor,
		Registry:            registry,
		MetaFetcher:         fetcher,
		HealthPinger:        database,
		DefaultTenantKey:    cfg.DefaultTenantKey,
		DrupalWebhookSecret: cfg.DrupalWebhookSecret,
		MetaVerifyToken:     cfg.MetaVerifyToken,
		MetaAppSecret:       cfg.MetaAppSecret,
		MetaDevMode:         cfg.MetaDevMode,
		OperatorJWTSecret:   cfg.OperatorJWTSecret,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Give in-flight async telemetry emits a window to finish.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
