// Package memory provides an in-memory implementation of the genroute.Storage
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cinexa/genroute/pkg/genroute"
)

// Storage implements genroute.Storage using in-memory maps and slices.
type Storage struct {
	mu         sync.RWMutex
	users      map[string]*genroute.User
	logs       []*genroute.LogEntry         // newest first
	records    []*genroute.GenerationRecord // newest first
	maxRecords int
}

// Option configures the storage.
type Option func(*Storage)

// WithMaxRecords caps the number of generation records the store accepts
// before CreateRecord starts returning ErrStorageCapacity. 0 means
// unbounded.
func WithMaxRecords(n int) Option {
	return func(s *Storage) { s.maxRecords = n }
}

// New creates a new in-memory storage adapter.
func New(opts ...Option) *Storage {
	s := &Storage{
		users: make(map[string]*genroute.User),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUser implements genroute.Storage.
func (s *Storage) GetUser(ctx context.Context, id string) (*genroute.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, genroute.ErrUserNotFound
	}

	// Return a copy to prevent external mutations
	uCopy := *u
	return &uCopy, nil
}

// PutUser implements genroute.Storage.
func (s *Storage) PutUser(ctx context.Context, u *genroute.User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("invalid user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uCopy := *u
	s.users[u.ID] = &uCopy
	return nil
}

// ListUsers implements genroute.Storage.
func (s *Storage) ListUsers(ctx context.Context) ([]*genroute.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*genroute.User, 0, len(s.users))
	for _, u := range s.users {
		uCopy := *u
		out = append(out, &uCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetCredits implements genroute.Storage.
func (s *Storage) SetCredits(ctx context.Context, id string, credits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return genroute.ErrUserNotFound
	}
	u.Credits = credits
	return nil
}

// DebitCredits implements genroute.Storage. The check and the decrement
// run under one lock, so concurrent debits for the same user serialize.
func (s *Storage) DebitCredits(ctx context.Context, id string, cost int) (int, error) {
	if cost < 0 {
		return 0, fmt.Errorf("negative cost")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return 0, genroute.ErrUserNotFound
	}
	if u.Credits < cost {
		return u.Credits, genroute.ErrInsufficientCredits
	}
	u.Credits -= cost
	return u.Credits, nil
}

// AppendLog implements genroute.Storage.
func (s *Storage) AppendLog(ctx context.Context, entry *genroute.LogEntry) error {
	if entry == nil {
		return fmt.Errorf("nil log entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eCopy := *entry
	s.logs = append([]*genroute.LogEntry{&eCopy}, s.logs...)
	return nil
}

// ListLogs implements genroute.Storage.
func (s *Storage) ListLogs(ctx context.Context, limit int) ([]*genroute.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*genroute.LogEntry, 0, n)
	for _, e := range s.logs[:n] {
		eCopy := *e
		out = append(out, &eCopy)
	}
	return out, nil
}

// ProviderUsage implements genroute.Storage.
func (s *Storage) ProviderUsage(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage := make(map[string]int)
	for _, e := range s.logs {
		usage[e.Provider]++
	}
	return usage, nil
}

// CreateRecord implements genroute.Storage.
func (s *Storage) CreateRecord(ctx context.Context, rec *genroute.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("invalid record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxRecords > 0 && len(s.records) >= s.maxRecords {
		return genroute.ErrStorageCapacity
	}

	rCopy := *rec
	s.records = append([]*genroute.GenerationRecord{&rCopy}, s.records...)
	return nil
}

// ListRecordsByUser implements genroute.Storage.
func (s *Storage) ListRecordsByUser(ctx context.Context, userID string, since time.Time) ([]*genroute.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*genroute.GenerationRecord
	for _, r := range s.records {
		if r.UserID != userID || r.CreatedAt.Before(since) {
			continue
		}
		rCopy := *r
		out = append(out, &rCopy)
	}
	return out, nil
}

// ListAllRecords implements genroute.Storage.
func (s *Storage) ListAllRecords(ctx context.Context) ([]*genroute.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*genroute.GenerationRecord, 0, len(s.records))
	for _, r := range s.records {
		rCopy := *r
		out = append(out, &rCopy)
	}
	return out, nil
}

// EvictOldestRecords implements genroute.Storage. Oldest is decided by
// CreatedAt, not insertion order, so backfilled records are evicted first.
func (s *Storage) EvictOldestRecords(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.records) {
		n = len(s.records)
	}

	// Reverse into insertion order so equal timestamps still evict the
	// earliest-inserted record.
	byAge := make([]*genroute.GenerationRecord, len(s.records))
	for i, r := range s.records {
		byAge[len(s.records)-1-i] = r
	}
	sort.SliceStable(byAge, func(i, j int) bool {
		return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
	})
	victims := make(map[*genroute.GenerationRecord]struct{}, n)
	for _, r := range byAge[:n] {
		victims[r] = struct{}{}
	}

	kept := s.records[:0]
	for _, r := range s.records {
		if _, ok := victims[r]; !ok {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return n, nil
}

// Clear removes all data (useful for testing).
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]*genroute.User)
	s.logs = nil
	s.records = nil
}
