package backfill

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"identity-service/prometheus"

	"gorm.io/gorm"
)

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLStore implements Store over business-document tables. Collections are
// plain table names carrying an id and a tenant_id column; the name is
// validated because it is interpolated as an identifier.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) MissingTenant(ctx context.Context, collection string, limit int) ([]string, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	var ids []string
	err := s.db.WithContext(ctx).Table(collection).
		Where("tenant_id IS NULL OR tenant_id = ''").
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *SQLStore) StampTenant(ctx context.Context, collection string, ids []string, tenantID string) (int64, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	defer prometheus.TrackDBOperation("update")(time.Now())

	result := s.db.WithContext(ctx).Table(collection).
		Where("id IN ?", ids).
		Where("tenant_id IS NULL OR tenant_id = ''").
		Update("tenant_id", tenantID)
	return result.RowsAffected, result.Error
}

func (s *SQLStore) CountStamped(ctx context.Context, collection string) (int64, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}
	defer prometheus.TrackDBOperation("query")(time.Now())

	var count int64
	err := s.db.WithContext(ctx).Table(collection).
		Where("tenant_id IS NOT NULL AND tenant_id <> ''").
		Count(&count).Error
	return count, err
}

func checkCollection(collection string) error {
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	return nil
}
