package provision

import (
	"context"
	"errors"
	"time"

	"identity-service/internal/claims"
	"identity-service/internal/event"
	"identity-service/internal/identity"
	"identity-service/internal/model"
	"identity-service/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyExists means an identity with a completed profile already
	// holds the email, whether found up front or via the duplicate-email
	// race against the provider.
	ErrAlreadyExists = errors.New("email already provisioned")
	// ErrTenantSuspended blocks provisioning into a suspended tenant.
	ErrTenantSuspended = errors.New("tenant suspended")
)

// InvitePublisher delivers invite events to the mail transport.
type InvitePublisher interface {
	PublishStaffInvited(ctx context.Context, ev event.StaffInvited) error
}

// Input is the invitation request. There is deliberately no tenant field
// here: the tenant always comes from the caller's own profile.
type Input struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessLevel string `json:"access_level"`
}

// Result reports the provisioned identity.
type Result struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	ActivationLink string `json:"activation_link,omitempty"`
}

// Provisioner creates a disabled identity, its claims and its profile, and
// hands an activation link to the event publisher. Retries are idempotent
// keyed on email: a half-provisioned identity (identity without profile) is
// completed, never duplicated.
type Provisioner struct {
	provider  identity.Provider
	profiles  store.ProfileStore
	tenants   store.TenantStore
	publisher InvitePublisher
	log       *zap.Logger
}

func NewProvisioner(provider identity.Provider, profiles store.ProfileStore, tenants store.TenantStore, publisher InvitePublisher, log *zap.Logger) *Provisioner {
	return &Provisioner{provider: provider, profiles: profiles, tenants: tenants, publisher: publisher, log: log}
}

// Provision invites a new staff member into the tenant. invitedBy is the
// acting admin's UID, recorded on the invite event.
func (p *Provisioner) Provision(ctx context.Context, tenantID, invitedBy string, in Input) (Result, error) {
	tenant, err := p.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	if !tenant.Active() {
		return Result{}, ErrTenantSuspended
	}

	user, err := p.provider.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		// Identity already exists. With a profile too this is a genuine
		// duplicate; without one it is a half-provisioned leftover from a
		// failed run, and the retry completes it.
		if _, perr := p.profiles.GetProfile(ctx, user.UID); perr == nil {
			return Result{}, ErrAlreadyExists
		} else if !errors.Is(perr, store.ErrProfileNotFound) {
			return Result{}, perr
		}
		p.log.Warn("Completing half-provisioned identity",
			zap.String("email", in.Email), zap.String("uid", user.UID))
	case errors.Is(err, identity.ErrUserNotFound):
		user, err = p.provider.CreateUser(ctx, in.Email, true)
		if err != nil {
			if errors.Is(err, identity.ErrEmailTaken) {
				// Lost the check-then-create race.
				return Result{}, ErrAlreadyExists
			}
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	// No prior claims worth preserving can exist on a fresh or
	// half-provisioned identity, so this is a direct write, not a sync.
	payload := claims.Payload{
		TenantID:    tenantID,
		StaffID:     user.UID,
		Role:        in.Role,
		AccessLevel: in.AccessLevel,
	}
	if err := p.provider.SetClaims(ctx, user.UID, payload); err != nil {
		return Result{}, err
	}

	profile := model.Profile{
		ID:          user.UID,
		Name:        in.Name,
		Email:       in.Email,
		TenantID:    tenantID,
		Role:        in.Role,
		AccessLevel: in.AccessLevel,
		// Empty sub-structures so downstream readers never null-dereference.
		Certifications:   "[]",
		EmergencyContact: "{}",
	}
	if err := p.profiles.CreateProfile(ctx, &profile); err != nil {
		if errors.Is(err, store.ErrProfileExists) {
			return Result{}, ErrAlreadyExists
		}
		return Result{}, err
	}

	link, err := p.provider.PasswordSetupLink(ctx, in.Email)
	if err != nil {
		// The identity and profile are complete; the link can be re-issued.
		p.log.Error("Failed to create activation link",
			zap.String("email", in.Email), zap.Error(err))
		return Result{UserID: user.UID, Email: user.Email}, nil
	}

	if p.publisher != nil {
		ev := event.StaffInvited{
			TenantID:       tenantID,
			UserID:         user.UID,
			Email:          user.Email,
			Name:           in.Name,
			Role:           in.Role,
			ActivationLink: link,
			InvitedBy:      invitedBy,
			Timestamp:      time.Now().UTC(),
		}
		if err := p.publisher.PublishStaffInvited(ctx, ev); err != nil {
			p.log.Warn("Invite event publish failed, continuing",
				zap.String("email", in.Email), zap.Error(err))
		}
	}

	p.log.Info("Staff provisioned",
		zap.String("tenant_id", tenantID),
		zap.String("uid", user.UID),
		zap.String("email", user.Email),
		zap.String("role", in.Role))

	return Result{UserID: user.UID, Email: user.Email, ActivationLink: link}, nil
}
