package genroute

import (
	"context"
	"time"
)

// Storage defines the persistence interface backing users, the usage log,
// and generation records. All methods use concrete types from this package
// to avoid import cycles.
type Storage interface {
	// GetUser retrieves a user by id.
	// Returns ErrUserNotFound if the id is unknown.
	GetUser(ctx context.Context, id string) (*User, error)

	// PutUser creates or replaces a user record.
	PutUser(ctx context.Context, u *User) error

	// ListUsers returns every user. Admin surface only.
	ListUsers(ctx context.Context) ([]*User, error)

	// SetCredits overwrites a user's balance. Administrative override;
	// bypasses all cost logic. Returns ErrUserNotFound for unknown users.
	SetCredits(ctx context.Context, id string, credits int) error

	// DebitCredits atomically decrements a user's balance by cost and
	// returns the remaining balance. The affordability check and the
	// decrement happen under one serialization point so two concurrent
	// requests cannot both pass the check before either deducts.
	// Returns ErrInsufficientCredits if the balance no longer covers the
	// cost, ErrUserNotFound for unknown users.
	DebitCredits(ctx context.Context, id string, cost int) (int, error)

	// AppendLog appends a usage log entry.
	AppendLog(ctx context.Context, entry *LogEntry) error

	// ListLogs returns up to limit entries, newest first.
	// limit <= 0 means no limit.
	ListLogs(ctx context.Context, limit int) ([]*LogEntry, error)

	// ProviderUsage aggregates the usage log into successful-call counts
	// per provider.
	ProviderUsage(ctx context.Context) (map[string]int, error)

	// CreateRecord persists a generation record.
	// Returns ErrStorageCapacity when the store is full.
	CreateRecord(ctx context.Context, rec *GenerationRecord) error

	// ListRecordsByUser returns a user's records created at or after
	// since, newest first.
	ListRecordsByUser(ctx context.Context, userID string, since time.Time) ([]*GenerationRecord, error)

	// ListAllRecords returns every record, newest first. Admin surface only.
	ListAllRecords(ctx context.Context) ([]*GenerationRecord, error)

	// EvictOldestRecords removes up to n of the oldest records and
	// returns how many were removed.
	EvictOldestRecords(ctx context.Context, n int) (int, error)
}
