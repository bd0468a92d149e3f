package resolver

import (
	"context"
	"errors"

	"identity-service/internal/claims"
	"identity-service/internal/store"
	"identity-service/prometheus"
)

// Source names where a tenant resolution came from.
const (
	SourceClaims  = "claims"
	SourceProfile = "profile"
	SourceNone    = "none"
)

// ErrNoTenant means neither the session claims nor the profile carry a
// tenant. Tenant-scoped reads must resolve to an empty result set, never to
// cross-tenant data.
var ErrNoTenant = errors.New("no tenant for session")

// Scope is the resolved tenant context of a session. When Impersonated is
// set, TenantID is the view tenant the super-admin selected, not the
// caller's own; only reads may be scoped by it.
type Scope struct {
	TenantID     string `json:"tenant_id"`
	Source       string `json:"source"`
	Impersonated bool   `json:"impersonated,omitempty"`
}

// Resolver determines the active tenant for a session: claim-first with a
// profile-store fallback for the window where claims have not synced yet.
type Resolver struct {
	profiles store.ProfileStore
}

func NewResolver(profiles store.ProfileStore) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve returns the session's tenant scope. The fast path reads the signed
// claims and does no I/O. On a claims miss the profile is loaded directly,
// accepting the extra read. A missing profile is ErrProfileNotFound (an
// administrative bug); a profile without a tenant is ErrNoTenant (a
// provisioning race) — callers need the distinction for support diagnostics.
func (r *Resolver) Resolve(ctx context.Context, payload claims.Payload, uid string) (Scope, error) {
	if payload.HasTenant() {
		prometheus.RecordTenantResolution(SourceClaims)
		return Scope{TenantID: payload.TenantID, Source: SourceClaims}, nil
	}

	profile, err := r.profiles.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			prometheus.RecordTenantResolution(SourceNone)
			return Scope{Source: SourceNone}, err
		}
		return Scope{}, err
	}
	if profile.TenantID == "" {
		prometheus.RecordTenantResolution(SourceNone)
		return Scope{Source: SourceNone}, ErrNoTenant
	}

	prometheus.RecordTenantResolution(SourceProfile)
	return Scope{TenantID: profile.TenantID, Source: SourceProfile}, nil
}

// WithViewTenant overlays an impersonated view tenant onto a resolved scope.
// Only super-admin sessions may impersonate, and the overlay never touches
// the session's own claims: it changes what this resolver reports, nothing
// else. Non-super-admin callers get their own scope back unchanged.
func (r *Resolver) WithViewTenant(scope Scope, payload claims.Payload, viewTenant string) Scope {
	if viewTenant == "" || viewTenant == scope.TenantID {
		return scope
	}
	if !payload.SuperAdmin {
		return scope
	}
	prometheus.RecordImpersonatedRead(viewTenant)
	return Scope{TenantID: viewTenant, Source: scope.Source, Impersonated: true}
}
