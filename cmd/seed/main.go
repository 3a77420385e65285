// seed inserts development sample data for local testing. Idempotent: the
// tenant upsert and mapping insert both skip existing rows.
package main

import (
	"context"
	"log"
	"time"

	"leadpulse/backend/internal/config"
	"leadpulse/backend/internal/db"
	leaddomain "leadpulse/backend/internal/lead/domain"
	mappingdomain "leadpulse/backend/internal/mapping/domain"
	mappingrepo "leadpulse/backend/internal/mapping/repository"
	tenantrepo "leadpulse/backend/internal/tenant/repository"
)

const (
	seedFormID      = "test-form-1"
	seedCampaignKey = "kampagne-test-1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tenants := tenantrepo.NewPostgresRepository(conn)
	if err := tenants.Ensure(ctx, cfg.DefaultTenantKey); err != nil {
		log.Fatalf("seed tenant %s: %v", cfg.DefaultTenantKey, err)
	}
	log.Printf("seed: tenant %s ensured", cfg.DefaultTenantKey)

	mappings := mappingrepo.NewPostgresRepository(conn)
	for _, source := range []leaddomain.Source{leaddomain.SourceDrupal, leaddomain.SourceMeta} {
		m := &mappingdomain.Mapping{
			TenantKey:   cfg.DefaultTenantKey,
			Source:      source,
			FormID:      seedFormID,
			CampaignKey: seedCampaignKey,
		}
		err := mappings.Create(ctx, m)
		switch {
		case err == nil:
			log.Printf("seed: mapping %s/%s/%s -> %s created", m.TenantKey, m.Source, m.FormID, m.CampaignKey)
		case err == mappingrepo.ErrDuplicate:
			log.Printf("seed: mapping %s/%s/%s already exists, skipping", m.TenantKey, m.Source, m.FormID)
		default:
			log.Fatalf("seed mapping: %v", err)
		}
	}
}
