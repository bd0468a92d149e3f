package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"identity-service/internal/claims"
	"identity-service/internal/event"
	"identity-service/internal/identity"
	"identity-service/internal/model"
	"identity-service/internal/store"

	"go.uber.org/zap"
)

type fakeProvider struct {
	users   map[string]identity.User // keyed by email
	claims  map[string]claims.Payload
	nextUID int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: make(map[string]identity.User), claims: make(map[string]claims.Payload)}
}

func (f *fakeProvider) VerifyToken(ctx context.Context, token string) (identity.User, error) {
	return identity.User{}, identity.ErrInvalidToken
}

func (f *fakeProvider) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	u, ok := f.users[email]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeProvider) CreateUser(ctx context.Context, email string, disabled bool) (identity.User, error) {
	if _, ok := f.users[email]; ok {
		return identity.User{}, identity.ErrEmailTaken
	}
	f.nextUID++
	u := identity.User{UID: fmt.Sprintf("uid-%d", f.nextUID), Email: email, Disabled: disabled}
	f.users[email] = u
	return u, nil
}

func (f *fakeProvider) SetDisabled(ctx context.Context, uid string, disabled bool) error { return nil }

func (f *fakeProvider) GetClaims(ctx context.Context, uid string) (claims.Payload, error) {
	return f.claims[uid], nil
}

func (f *fakeProvider) SetClaims(ctx context.Context, uid string, payload claims.Payload) error {
	f.claims[uid] = payload
	return nil
}

func (f *fakeProvider) PasswordSetupLink(ctx context.Context, email string) (string, error) {
	return "https://app.example.com/activate?token=" + email, nil
}

type fakeProfiles struct {
	profiles  map[string]model.Profile
	createErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]model.Profile)}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, store.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) GetProfileByEmail(ctx context.Context, email string) (model.Profile, error) {
	for _, p := range f.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return model.Profile{}, store.ErrProfileNotFound
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, profile *model.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.profiles[profile.ID]; ok {
		return store.ErrProfileExists
	}
	f.profiles[profile.ID] = *profile
	return nil
}

func (f *fakeProfiles) SetRole(ctx context.Context, id, role, accessLevel string) error { return nil }

func (f *fakeProfiles) Owners(ctx context.Context, tenantID string) ([]model.Profile, error) {
	return nil, nil
}

type fakeTenants struct {
	tenants map[string]model.Tenant
}

func newFakeTenants(tenants ...model.Tenant) *fakeTenants {
	f := &fakeTenants{tenants: make(map[string]model.Tenant)}
	for _, tn := range tenants {
		f.tenants[tn.ID] = tn
	}
	return f
}

func (f *fakeTenants) GetTenant(ctx context.Context, id string) (model.Tenant, error) {
	tn, ok := f.tenants[id]
	if !ok {
		return model.Tenant{}, store.ErrTenantNotFound
	}
	return tn, nil
}

func (f *fakeTenants) CreateTenant(ctx context.Context, tenant *model.Tenant) error { return nil }

func (f *fakeTenants) DeleteTenant(ctx context.Context, id string) error { return nil }

func (f *fakeTenants) CountTenantProfiles(ctx context.Context, tenantID string) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	events []event.StaffInvited
}

func (f *fakePublisher) PublishStaffInvited(ctx context.Context, ev event.StaffInvited) error {
	f.events = append(f.events, ev)
	return nil
}

func acmeTenant() model.Tenant {
	return model.Tenant{ID: "acme", DisplayName: "Acme Traffic", Status: model.TenantActive}
}

func TestProvisionCreatesDisabledIdentityWithClaimsAndProfile(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfiles()
	publisher := &fakePublisher{}
	p := NewProvisioner(provider, profiles, newFakeTenants(acmeTenant()), publisher, zap.NewNop())

	result, err := p.Provision(context.Background(), "acme", "admin-1", Input{
		Name: "A", Email: "a@x.com", Role: model.RoleSTMS, AccessLevel: model.AccessAdmin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := provider.users["a@x.com"]
	if !user.Disabled {
		t.Error("new identity should be disabled until activated")
	}
	got := provider.claims[user.UID]
	want := claims.Payload{TenantID: "acme", StaffID: user.UID, Role: model.RoleSTMS, AccessLevel: model.AccessAdmin}
	if got != want {
		t.Errorf("claims = %+v, want %+v", got, want)
	}

	profile := profiles.profiles[user.UID]
	if profile.TenantID != "acme" || profile.Email != "a@x.com" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.Certifications != "[]" || profile.EmergencyContact != "{}" {
		t.Errorf("default sub-structures missing: %+v", profile)
	}

	if result.UserID != user.UID || result.ActivationLink == "" {
		t.Errorf("result = %+v", result)
	}
	if len(publisher.events) != 1 || publisher.events[0].InvitedBy != "admin-1" {
		t.Errorf("invite event not published: %+v", publisher.events)
	}
}

func TestProvisionDuplicateRejected(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfiles()
	p := NewProvisioner(provider, profiles, newFakeTenants(acmeTenant()), &fakePublisher{}, zap.NewNop())

	in := Input{Name: "A", Email: "a@x.com", Role: model.RoleSTMS, AccessLevel: model.AccessAdmin}
	if _, err := p.Provision(context.Background(), "acme", "admin-1", in); err != nil {
		t.Fatalf("first provision: %v", err)
	}
	if _, err := p.Provision(context.Background(), "acme", "admin-1", in); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if len(provider.users) != 1 || len(profiles.profiles) != 1 {
		t.Errorf("duplicate provisioning created extra records: %d users, %d profiles",
			len(provider.users), len(profiles.profiles))
	}
}

func TestProvisionCompletesHalfProvisionedIdentity(t *testing.T) {
	provider := newFakeProvider()
	profiles := newFakeProfiles()
	p := NewProvisioner(provider, profiles, newFakeTenants(acmeTenant()), &fakePublisher{}, zap.NewNop())

	// First run dies after identity creation but before the profile write.
	profiles.createErr = errors.New("store unavailable")
	in := Input{Name: "A", Email: "a@x.com", Role: model.RoleTC, AccessLevel: model.AccessClient}
	if _, err := p.Provision(context.Background(), "acme", "admin-1", in); err == nil {
		t.Fatal("expected first provision to fail")
	}
	if len(provider.users) != 1 {
		t.Fatalf("identity not created: %d users", len(provider.users))
	}

	// Retry keyed on the same email completes the half-provisioned identity.
	profiles.createErr = nil
	result, err := p.Provision(context.Background(), "acme", "admin-1", in)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(provider.users) != 1 {
		t.Errorf("retry created a duplicate identity: %d users", len(provider.users))
	}
	if _, ok := profiles.profiles[result.UserID]; !ok {
		t.Error("retry did not complete the profile")
	}
}

func TestProvisionSuspendedTenant(t *testing.T) {
	suspended := model.Tenant{ID: "acme", DisplayName: "Acme", Status: model.TenantSuspended}
	p := NewProvisioner(newFakeProvider(), newFakeProfiles(), newFakeTenants(suspended), &fakePublisher{}, zap.NewNop())

	_, err := p.Provision(context.Background(), "acme", "admin-1", Input{
		Name: "A", Email: "a@x.com", Role: model.RoleTC, AccessLevel: model.AccessClient,
	})
	if !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended, got %v", err)
	}
}

func TestProvisionUnknownTenant(t *testing.T) {
	p := NewProvisioner(newFakeProvider(), newFakeProfiles(), newFakeTenants(), &fakePublisher{}, zap.NewNop())

	_, err := p.Provision(context.Background(), "ghost", "admin-1", Input{
		Name: "A", Email: "a@x.com", Role: model.RoleTC, AccessLevel: model.AccessClient,
	})
	if !errors.Is(err, store.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}
