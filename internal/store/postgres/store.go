package postgres

import (
	"context"
	"errors"
	"time"

	"identity-service/internal/model"
	"identity-service/internal/store"
	"identity-service/prometheus"

	"gorm.io/gorm"
)

// Store implements store.TenantStore and store.ProfileStore on PostgreSQL.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetTenant(ctx context.Context, id string) (model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	result := s.db.WithContext(ctx).First(&tenant, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return model.Tenant{}, store.ErrTenantNotFound
		}
		return model.Tenant{}, result.Error
	}
	return tenant, nil
}

func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.Tenant
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", tenant.ID).Error; err == nil {
		return store.ErrTenantExists
	}
	if err := s.db.WithContext(ctx).Create(tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrTenantExists
		}
		return err
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := s.db.WithContext(ctx).Delete(&model.Tenant{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrTenantNotFound
	}
	return nil
}

func (s *Store) CountTenantProfiles(ctx context.Context, tenantID string) (int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Profile{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var profile model.Profile
	result := s.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return model.Profile{}, store.ErrProfileNotFound
		}
		return model.Profile{}, result.Error
	}
	return profile, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (model.Profile, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var profile model.Profile
	result := s.db.WithContext(ctx).First(&profile, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return model.Profile{}, store.ErrProfileNotFound
		}
		return model.Profile{}, result.Error
	}
	return profile, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *model.Profile) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.Profile
	if err := s.db.WithContext(ctx).First(&existing, "id = ? OR email = ?", profile.ID, profile.Email).Error; err == nil {
		return store.ErrProfileExists
	}
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrProfileExists
		}
		return err
	}
	return nil
}

func (s *Store) SetRole(ctx context.Context, id, role, accessLevel string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	result := s.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).
		Updates(map[string]interface{}{"role": role, "access_level": accessLevel})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrProfileNotFound
	}
	return nil
}

func (s *Store) Owners(ctx context.Context, tenantID string) ([]model.Profile, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var owners []model.Profile
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND role = ?", tenantID, model.RoleOwner).
		Find(&owners).Error
	return owners, err
}
