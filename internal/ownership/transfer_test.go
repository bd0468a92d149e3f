package ownership

import (
	"context"
	"errors"
	"testing"

	"identity-service/internal/model"
	"identity-service/internal/store"

	"go.uber.org/zap"
)

type fakeProfiles struct {
	profiles map[string]model.Profile
	// failRoleFor injects a SetRole failure for one profile id.
	failRoleFor string
}

func newFakeProfiles(profiles ...model.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]model.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, store.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) GetProfileByEmail(ctx context.Context, email string) (model.Profile, error) {
	return model.Profile{}, store.ErrProfileNotFound
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, profile *model.Profile) error { return nil }

func (f *fakeProfiles) SetRole(ctx context.Context, id, role, accessLevel string) error {
	if id == f.failRoleFor {
		return errors.New("injected write failure")
	}
	p, ok := f.profiles[id]
	if !ok {
		return store.ErrProfileNotFound
	}
	p.Role = role
	p.AccessLevel = accessLevel
	f.profiles[id] = p
	return nil
}

func (f *fakeProfiles) Owners(ctx context.Context, tenantID string) ([]model.Profile, error) {
	var owners []model.Profile
	for _, p := range f.profiles {
		if p.TenantID == tenantID && p.Role == model.RoleOwner {
			owners = append(owners, p)
		}
	}
	return owners, nil
}

func ownerAndSuccessor() (*fakeProfiles, *Service) {
	profiles := newFakeProfiles(
		model.Profile{ID: "a", TenantID: "acme", Role: model.RoleOwner, AccessLevel: model.AccessAdmin},
		model.Profile{ID: "b", TenantID: "acme", Role: model.RoleSTMS, AccessLevel: model.AccessManagement},
	)
	return profiles, NewService(profiles, nil, model.RoleSTMS, zap.NewNop())
}

func TestTransferSwapsRoles(t *testing.T) {
	profiles, svc := ownerAndSuccessor()

	if err := svc.Transfer(context.Background(), "acme", "a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := profiles.profiles["b"]; got.Role != model.RoleOwner || got.AccessLevel != model.AccessAdmin {
		t.Errorf("new owner = %+v", got)
	}
	if got := profiles.profiles["a"]; got.Role != model.RoleSTMS || got.AccessLevel != model.AccessAdmin {
		t.Errorf("demoted owner = %+v", got)
	}

	owners, _ := profiles.Owners(context.Background(), "acme")
	if len(owners) != 1 {
		t.Errorf("expected exactly one owner, got %d", len(owners))
	}
}

func TestTransferNeverYieldsZeroOwners(t *testing.T) {
	// Failure after step 1 (promote): demote fails, two owners remain.
	profiles, svc := ownerAndSuccessor()
	profiles.failRoleFor = "a"

	err := svc.Transfer(context.Background(), "acme", "a", "b")
	if !errors.Is(err, ErrDemoteFailed) {
		t.Fatalf("expected ErrDemoteFailed, got %v", err)
	}
	owners, _ := profiles.Owners(context.Background(), "acme")
	if len(owners) < 1 {
		t.Fatal("transfer failure left zero owners")
	}
	if len(owners) != 2 {
		t.Errorf("expected the recoverable two-owner state, got %d", len(owners))
	}

	// Failure before step 1: nothing written, the old owner stands.
	profiles2, svc2 := ownerAndSuccessor()
	profiles2.failRoleFor = "b"
	if err := svc2.Transfer(context.Background(), "acme", "a", "b"); err == nil {
		t.Fatal("expected promote failure")
	}
	owners2, _ := profiles2.Owners(context.Background(), "acme")
	if len(owners2) != 1 {
		t.Errorf("expected the untouched single-owner state, got %d", len(owners2))
	}
}

func TestTransferRepeatRejected(t *testing.T) {
	_, svc := ownerAndSuccessor()

	if err := svc.Transfer(context.Background(), "acme", "a", "b"); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if err := svc.Transfer(context.Background(), "acme", "a", "b"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on replay, got %v", err)
	}
}

func TestTransferWrongTenant(t *testing.T) {
	profiles := newFakeProfiles(
		model.Profile{ID: "a", TenantID: "acme", Role: model.RoleOwner, AccessLevel: model.AccessAdmin},
		model.Profile{ID: "b", TenantID: "other", Role: model.RoleSTMS, AccessLevel: model.AccessAdmin},
	)
	svc := NewService(profiles, nil, "", zap.NewNop())

	if err := svc.Transfer(context.Background(), "acme", "a", "b"); !errors.Is(err, ErrWrongTenant) {
		t.Fatalf("expected ErrWrongTenant, got %v", err)
	}
}

func TestTransferResyncsBothClaims(t *testing.T) {
	profiles := newFakeProfiles(
		model.Profile{ID: "a", TenantID: "acme", Role: model.RoleOwner, AccessLevel: model.AccessAdmin},
		model.Profile{ID: "b", TenantID: "acme", Role: model.RoleSTMS, AccessLevel: model.AccessAdmin},
	)
	var synced []string
	svc := NewService(profiles, func(ctx context.Context, uid string) error {
		synced = append(synced, uid)
		return nil
	}, "", zap.NewNop())

	if err := svc.Transfer(context.Background(), "acme", "a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(synced) != 2 {
		t.Fatalf("expected both identities re-synced, got %v", synced)
	}
}
