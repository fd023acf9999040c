package genroute

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Records persists generation outcomes as historical artifacts. Writes are
// capacity tolerant: when the backing store reports it is full, the oldest
// records are evicted and the write retried once. A full store is degraded,
// never fatal to the caller.
type Records struct {
	storage    Storage
	logger     Logger
	metrics    Metrics
	windowDays int
	evictBatch int
}

// NewRecords creates a record store over the given storage.
func NewRecords(storage Storage, logger Logger, metrics Metrics, windowDays, evictBatch int) *Records {
	if logger == nil {
		logger = &NoopLogger{}
	}
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	if windowDays <= 0 {
		windowDays = 90
	}
	if evictBatch <= 0 {
		evictBatch = 10
	}
	return &Records{
		storage:    storage,
		logger:     logger,
		metrics:    metrics,
		windowDays: windowDays,
		evictBatch: evictBatch,
	}
}

// Create persists rec, filling in ID and CreatedAt when unset. On a
// capacity error it evicts the oldest records and retries once.
func (r *Records) Create(ctx context.Context, rec *GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	err := r.storage.CreateRecord(ctx, rec)
	if !errors.Is(err, ErrStorageCapacity) {
		return err
	}

	evicted, evictErr := r.storage.EvictOldestRecords(ctx, r.evictBatch)
	r.metrics.RecordEviction(evicted)
	r.logger.Warn("record store full, evicted oldest records",
		Field{"evicted", evicted},
		Field{"error", evictErr},
	)
	if evictErr != nil {
		return evictErr
	}
	return r.storage.CreateRecord(ctx, rec)
}

// ListByUser returns the user's records inside the rolling history window,
// newest first. The window is a retention policy for this query only;
// older records are excluded, not purged.
func (r *Records) ListByUser(ctx context.Context, userID string) ([]*GenerationRecord, error) {
	since := time.Now().UTC().AddDate(0, 0, -r.windowDays)
	return r.storage.ListRecordsByUser(ctx, userID, since)
}

// ListAll returns every record, newest first. Admin surface only.
func (r *Records) ListAll(ctx context.Context) ([]*GenerationRecord, error) {
	return r.storage.ListAllRecords(ctx)
}
