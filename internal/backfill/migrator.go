package backfill

import (
	"context"
	"errors"
	"fmt"

	"identity-service/prometheus"

	"go.uber.org/zap"
)

// ErrPartialFailure is returned by Summary.Err when at least one collection
// errored. The sweep itself always visits every collection.
var ErrPartialFailure = errors.New("backfill completed with errors")

// Store is the document-store surface the migrator needs. StampTenant is the
// only write and must fit inside the store's atomic batch bound, which is
// why the migrator chunks.
type Store interface {
	// MissingTenant returns up to limit document ids in the collection that
	// carry no tenant id.
	MissingTenant(ctx context.Context, collection string, limit int) ([]string, error)
	// StampTenant sets the tenant id on the given documents in one batch
	// write and reports how many rows changed.
	StampTenant(ctx context.Context, collection string, ids []string, tenantID string) (int64, error)
	// CountStamped returns how many documents already carry a tenant id.
	CountStamped(ctx context.Context, collection string) (int64, error)
}

// CollectionResult is the per-collection outcome.
type CollectionResult struct {
	Collection string
	Updated    int64
	Skipped    int64
	Err        error
}

// Summary aggregates the whole run.
type Summary struct {
	Results []CollectionResult
}

// Err returns ErrPartialFailure when any collection errored.
func (s Summary) Err() error {
	for _, r := range s.Results {
		if r.Err != nil {
			return ErrPartialFailure
		}
	}
	return nil
}

// Migrator stamps a tenant id onto legacy documents lacking one. Documents
// that already carry a tenant id are never touched, so re-running is safe
// and a completed collection reports updated=0.
type Migrator struct {
	store     Store
	batchSize int
	log       *zap.Logger
}

func NewMigrator(store Store, batchSize int, log *zap.Logger) *Migrator {
	if batchSize <= 0 {
		batchSize = 400
	}
	return &Migrator{store: store, batchSize: batchSize, log: log}
}

// Migrate sweeps every named collection. A failing collection is recorded
// and the sweep continues with the next one.
func (m *Migrator) Migrate(ctx context.Context, tenantID string, collections []string) Summary {
	var summary Summary
	for _, collection := range collections {
		result := m.migrateCollection(ctx, tenantID, collection)
		summary.Results = append(summary.Results, result)

		prometheus.RecordBackfillDocs(collection, "updated", result.Updated)
		prometheus.RecordBackfillDocs(collection, "skipped", result.Skipped)
		if result.Err != nil {
			prometheus.RecordBackfillDocs(collection, "errored", 1)
			m.log.Error("Backfill collection failed, continuing sweep",
				zap.String("collection", collection), zap.Error(result.Err))
			continue
		}
		m.log.Info("Backfill collection done",
			zap.String("collection", collection),
			zap.Int64("updated", result.Updated),
			zap.Int64("skipped", result.Skipped))
	}
	return summary
}

func (m *Migrator) migrateCollection(ctx context.Context, tenantID, collection string) CollectionResult {
	result := CollectionResult{Collection: collection}

	skipped, err := m.store.CountStamped(ctx, collection)
	if err != nil {
		result.Err = fmt.Errorf("count stamped: %w", err)
		return result
	}
	result.Skipped = skipped

	for {
		ids, err := m.store.MissingTenant(ctx, collection, m.batchSize)
		if err != nil {
			result.Err = fmt.Errorf("list missing: %w", err)
			return result
		}
		if len(ids) == 0 {
			return result
		}

		updated, err := m.store.StampTenant(ctx, collection, ids, tenantID)
		result.Updated += updated
		if err != nil {
			// Chunks already stamped stay stamped; the next run picks up
			// the remainder without double-applying.
			result.Err = fmt.Errorf("stamp batch: %w", err)
			return result
		}
	}
}
