package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinexa/genroute/pkg/genroute"
)

// setupTestRedis creates a Redis client for testing
// Requires Redis running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	return client
}

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := New(setupTestRedis(t), DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return storage
}

func TestNew(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Error("Expected error for nil client")
	}

	storage, err := New(redis.NewClient(&redis.Options{Addr: "localhost:6379"}), Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if storage.config.KeyPrefix != "genroute:" {
		t.Errorf("Expected default key prefix, got %q", storage.config.KeyPrefix)
	}
}

func TestStorage_GetPutUser(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if _, err := storage.GetUser(ctx, "u1"); err != genroute.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	u := &genroute.User{
		ID:       "u1",
		Email:    "a@b.c",
		Name:     "Alice",
		Plan:     genroute.PlanPlus,
		Credits:  130,
		IsAdmin:  false,
		IsActive: true,
	}
	if err := storage.PutUser(ctx, u); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := storage.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "a@b.c" || got.Plan != genroute.PlanPlus || got.Credits != 130 || !got.IsActive {
		t.Errorf("Unexpected user: %+v", got)
	}

	users, err := storage.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}
}

func TestStorage_DebitCredits(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	storage.PutUser(ctx, &genroute.User{ID: "u1", Credits: 5})

	remaining, err := storage.DebitCredits(ctx, "u1", 3)
	if err != nil || remaining != 2 {
		t.Fatalf("Expected 2 remaining, got %d, %v", remaining, err)
	}

	remaining, err = storage.DebitCredits(ctx, "u1", 2)
	if err != nil || remaining != 0 {
		t.Fatalf("Expected 0 remaining, got %d, %v", remaining, err)
	}

	_, err = storage.DebitCredits(ctx, "u1", 1)
	if err != genroute.ErrInsufficientCredits {
		t.Errorf("Expected ErrInsufficientCredits, got %v", err)
	}

	_, err = storage.DebitCredits(ctx, "ghost", 1)
	if err != genroute.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestStorage_DebitCredits_Concurrent(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	storage.PutUser(ctx, &genroute.User{ID: "u1", Credits: 50})

	// The Lua script serializes check-and-decrement on the server, so
	// exactly 50 of 100 racing debits may win.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := storage.DebitCredits(ctx, "u1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 50 {
		t.Errorf("Expected exactly 50 successful debits, got %d", succeeded)
	}
	u, _ := storage.GetUser(ctx, "u1")
	if u.Credits != 0 {
		t.Errorf("Expected balance 0, got %d", u.Credits)
	}
}

func TestStorage_SetCredits(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if err := storage.SetCredits(ctx, "ghost", 10); err != genroute.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	storage.PutUser(ctx, &genroute.User{ID: "u1", Credits: 1})
	if err := storage.SetCredits(ctx, "u1", 42); err != nil {
		t.Fatalf("SetCredits failed: %v", err)
	}
	u, _ := storage.GetUser(ctx, "u1")
	if u.Credits != 42 {
		t.Errorf("Expected 42 credits, got %d", u.Credits)
	}
}

func TestStorage_LogsAndUsage(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		provider := "gemini"
		if i%2 == 1 {
			provider = "openai"
		}
		err := storage.AppendLog(ctx, &genroute.LogEntry{
			ID:        fmt.Sprintf("log%d", i),
			UserID:    "u1",
			Provider:  provider,
			Mode:      genroute.ModeText,
			Cost:      1,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("AppendLog failed: %v", err)
		}
	}

	logs, err := storage.ListLogs(ctx, 0)
	if err != nil {
		t.Fatalf("ListLogs failed: %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("Expected 5 logs, got %d", len(logs))
	}
	// Newest first.
	if logs[0].ID != "log4" {
		t.Errorf("Expected log4 first, got %s", logs[0].ID)
	}

	logs, _ = storage.ListLogs(ctx, 2)
	if len(logs) != 2 {
		t.Errorf("Expected 2 logs with limit, got %d", len(logs))
	}

	usage, err := storage.ProviderUsage(ctx)
	if err != nil {
		t.Fatalf("ProviderUsage failed: %v", err)
	}
	if usage["gemini"] != 3 || usage["openai"] != 2 {
		t.Errorf("Unexpected usage: %v", usage)
	}
}

func TestStorage_Records(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	put := func(id, user string, age time.Duration) {
		err := storage.CreateRecord(ctx, &genroute.GenerationRecord{
			ID:        id,
			UserID:    user,
			Type:      genroute.RecordTypeVideo,
			Status:    genroute.StatusCompleted,
			URL:       "https://example.com/" + id,
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("CreateRecord %s failed: %v", id, err)
		}
	}
	put("a", "u1", time.Hour)
	put("b", "u2", 2*time.Hour)
	put("c", "u1", 100*24*time.Hour)

	// Per-user listing honors the since boundary.
	got, err := storage.ListRecordsByUser(ctx, "u1", now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("ListRecordsByUser failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Unexpected records: %+v", got)
	}

	// Global listing is newest first.
	all, err := storage.ListAllRecords(ctx)
	if err != nil {
		t.Fatalf("ListAllRecords failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("Unexpected order: %+v", all)
	}
}

func TestStorage_RecordCapacityAndEviction(t *testing.T) {
	client := setupTestRedis(t)
	storage, err := New(client, Config{MaxRecords: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		err := storage.CreateRecord(ctx, &genroute.GenerationRecord{
			ID:        fmt.Sprintf("r%d", i),
			UserID:    "u1",
			Type:      genroute.RecordTypeImage,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CreateRecord %d failed: %v", i, err)
		}
	}

	err = storage.CreateRecord(ctx, &genroute.GenerationRecord{ID: "r3", UserID: "u1", Type: genroute.RecordTypeImage, CreatedAt: now.Add(3 * time.Second)})
	if err != genroute.ErrStorageCapacity {
		t.Fatalf("Expected ErrStorageCapacity, got %v", err)
	}

	n, err := storage.EvictOldestRecords(ctx, 2)
	if err != nil || n != 2 {
		t.Fatalf("EvictOldestRecords returned %d, %v", n, err)
	}

	all, _ := storage.ListAllRecords(ctx)
	if len(all) != 1 || all[0].ID != "r2" {
		t.Errorf("Expected only r2 to survive, got %+v", all)
	}

	// Room again.
	if err := storage.CreateRecord(ctx, &genroute.GenerationRecord{ID: "r3", UserID: "u1", Type: genroute.RecordTypeImage, CreatedAt: now.Add(3 * time.Second)}); err != nil {
		t.Errorf("CreateRecord after eviction failed: %v", err)
	}
}
