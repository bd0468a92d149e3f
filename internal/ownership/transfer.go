package ownership

import (
	"context"
	"errors"
	"fmt"

	"identity-service/internal/model"
	"identity-service/internal/store"
	"identity-service/prometheus"

	"go.uber.org/zap"
)

var (
	// ErrNotOwner means the named current owner does not hold the Owner
	// role, which also rejects replays of an already-applied transfer.
	ErrNotOwner = errors.New("profile does not hold the Owner role")
	// ErrWrongTenant means one of the profiles belongs to another tenant.
	ErrWrongTenant = errors.New("profile does not belong to tenant")
	// ErrSameProfile rejects a transfer onto the current owner itself.
	ErrSameProfile = errors.New("current and new owner are the same profile")
	// ErrDemoteFailed means the promote succeeded but the demote did not:
	// the tenant temporarily has two owners. Recoverable by retrying the
	// demote; the ordering guarantees it is never zero owners.
	ErrDemoteFailed = errors.New("failed to demote previous owner")
)

// Service swaps the Owner role between two profiles of the same tenant. The
// two writes are not atomic; the new owner is written first so a failure
// between them leaves two owners, never zero.
type Service struct {
	profiles    store.ProfileStore
	resync      func(ctx context.Context, uid string) error
	demotedRole string
	log         *zap.Logger
}

// NewService builds the transfer service. resync is called for both parties
// after the swap and may be nil; until a session refreshes its token the old
// owner keeps its cached privilege for the remaining token lifetime.
func NewService(profiles store.ProfileStore, resync func(ctx context.Context, uid string) error, demotedRole string, log *zap.Logger) *Service {
	if demotedRole == "" {
		demotedRole = model.RoleSTMS
	}
	return &Service{profiles: profiles, resync: resync, demotedRole: demotedRole, log: log}
}

// Transfer makes newOwnerID the tenant's owner and demotes currentOwnerID.
func (s *Service) Transfer(ctx context.Context, tenantID, currentOwnerID, newOwnerID string) error {
	prometheus.OwnershipTransferCounter.Inc()

	if currentOwnerID == newOwnerID {
		return ErrSameProfile
	}

	current, err := s.profiles.GetProfile(ctx, currentOwnerID)
	if err != nil {
		return err
	}
	next, err := s.profiles.GetProfile(ctx, newOwnerID)
	if err != nil {
		return err
	}

	if current.TenantID != tenantID || next.TenantID != tenantID {
		return ErrWrongTenant
	}
	if current.Role != model.RoleOwner {
		return ErrNotOwner
	}

	// Promote first. If the demote below fails the tenant has two owners,
	// a safe state an operator can repair; the reverse order could leave
	// zero owners.
	if err := s.profiles.SetRole(ctx, newOwnerID, model.RoleOwner, model.AccessAdmin); err != nil {
		return fmt.Errorf("promote new owner: %w", err)
	}

	if err := s.profiles.SetRole(ctx, currentOwnerID, s.demotedRole, model.AccessAdmin); err != nil {
		s.log.Error("Ownership transfer left two owners",
			zap.String("tenant_id", tenantID),
			zap.String("current_owner", currentOwnerID),
			zap.String("new_owner", newOwnerID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDemoteFailed, err)
	}

	// Both sessions keep their cached role until the next token refresh.
	// The guard re-derives privilege from the profile for cross-tenant
	// operations, so this staleness is bounded and not a security gap.
	s.resyncClaims(ctx, newOwnerID)
	s.resyncClaims(ctx, currentOwnerID)

	s.log.Info("Ownership transferred",
		zap.String("tenant_id", tenantID),
		zap.String("previous_owner", currentOwnerID),
		zap.String("new_owner", newOwnerID),
		zap.String("demoted_role", s.demotedRole))
	return nil
}

func (s *Service) resyncClaims(ctx context.Context, uid string) {
	if s.resync == nil {
		return
	}
	if err := s.resync(ctx, uid); err != nil {
		s.log.Warn("Claims re-sync after transfer failed",
			zap.String("uid", uid), zap.Error(err))
	}
}
