package claims

import (
	"context"
	"errors"

	"identity-service/internal/store"

	"go.uber.org/zap"
)

// ErrMissingTenant means the profile exists but carries no tenant yet. That
// is the provisioning race window, not a hard failure; callers must not
// proceed to scope data on it.
var ErrMissingTenant = errors.New("profile has no tenant")

// Provider is the slice of the identity provider the synchronizer needs:
// reading and replacing the stored claims, nothing else.
type Provider interface {
	GetClaims(ctx context.Context, uid string) (Payload, error)
	SetClaims(ctx context.Context, uid string, payload Payload) error
}

// Synchronizer pushes profile authorization fields into the identity
// provider's claims. The provider's SetClaims is a full replace, so every
// write here goes through read-merge-write to keep fields the synchronizer
// does not own.
type Synchronizer struct {
	provider Provider
	profiles store.ProfileStore
	log      *zap.Logger
}

func NewSynchronizer(provider Provider, profiles store.ProfileStore, log *zap.Logger) *Synchronizer {
	return &Synchronizer{provider: provider, profiles: profiles, log: log}
}

// SyncClaims rewrites the account's claims from its profile. Idempotent:
// repeated calls converge to the same payload. The caller's current token is
// stale after a successful sync and must be refreshed before the new scope
// takes effect.
func (s *Synchronizer) SyncClaims(ctx context.Context, uid string) (Payload, error) {
	profile, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		return Payload{}, err
	}
	if profile.TenantID == "" {
		return Payload{}, ErrMissingTenant
	}

	existing, err := s.provider.GetClaims(ctx, uid)
	if err != nil {
		return Payload{}, err
	}

	merged := existing.MergeProfile(&profile)
	if err := s.provider.SetClaims(ctx, uid, merged); err != nil {
		return Payload{}, err
	}

	s.log.Info("Claims synchronized",
		zap.String("uid", uid),
		zap.String("tenant_id", merged.TenantID),
		zap.String("role", merged.Role))
	return merged, nil
}

// SetSuperAdmin flips only the super-admin flag, leaving every other claim
// untouched. Privileged: callable only from a super-admin session or an
// out-of-band trusted script.
func (s *Synchronizer) SetSuperAdmin(ctx context.Context, uid string, enabled bool) error {
	existing, err := s.provider.GetClaims(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.provider.SetClaims(ctx, uid, existing.WithSuperAdmin(enabled)); err != nil {
		return err
	}
	s.log.Info("Super-admin flag updated", zap.String("uid", uid), zap.Bool("enabled", enabled))
	return nil
}
