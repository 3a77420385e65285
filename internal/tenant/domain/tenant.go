package domain

import "time"

// Tenant is an isolated customer scope; all data is partitioned by TenantKey.
// Tenants are created implicitly on first reference and never deleted here.
type Tenant struct {
	TenantKey string
	Name      string
	CreatedAt time.Time
}
