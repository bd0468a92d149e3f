package store

import (
	"context"

	"identity-service/internal/model"
)

// TenantStore is the durable per-tenant metadata store.
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (model.Tenant, error)
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	// DeleteTenant removes the tenant record only. Profiles and business
	// documents referencing the tenant are intentionally left in place.
	DeleteTenant(ctx context.Context, id string) error
	CountTenantProfiles(ctx context.Context, tenantID string) (int64, error)
}

// ProfileStore holds the authoritative per-identity authorization record.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (model.Profile, error)
	CreateProfile(ctx context.Context, profile *model.Profile) error
	// SetRole updates role and access level for a single profile.
	SetRole(ctx context.Context, id, role, accessLevel string) error
	// Owners returns every profile holding the Owner role for the tenant.
	Owners(ctx context.Context, tenantID string) ([]model.Profile, error)
}
