package genroute_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinexa/genroute/pkg/genroute"
	"github.com/cinexa/genroute/storage/memory"
)

func videoRecord(userID, prompt string) *genroute.GenerationRecord {
	return &genroute.GenerationRecord{
		UserID: userID,
		Type:   genroute.RecordTypeVideo,
		Prompt: prompt,
		Status: genroute.StatusCompleted,
		URL:    "https://example.com/v.mp4",
	}
}

func TestRecords_CreateFillsIdentity(t *testing.T) {
	storage := memory.New()
	records := genroute.NewRecords(storage, nil, nil, 0, 0)
	ctx := context.Background()

	rec := videoRecord("u1", "a cat")
	require.NoError(t, records.Create(ctx, rec))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	// Caller-provided identity is preserved.
	explicit := videoRecord("u1", "a dog")
	explicit.ID = "fixed-id"
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	explicit.CreatedAt = created
	require.NoError(t, records.Create(ctx, explicit))
	assert.Equal(t, "fixed-id", explicit.ID)
	assert.Equal(t, created, explicit.CreatedAt)
}

func TestRecords_CapacityEvictsAndRetries(t *testing.T) {
	storage := memory.New(memory.WithMaxRecords(5))
	records := genroute.NewRecords(storage, nil, nil, 0, 2)
	ctx := context.Background()

	// Fill to capacity, then keep writing. Every write must succeed; the
	// store evicts its oldest entries to make room.
	for i := 0; i < 12; i++ {
		rec := videoRecord("u1", fmt.Sprintf("prompt %d", i))
		rec.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
		require.NoError(t, records.Create(ctx, rec), "write %d", i)
	}

	// Only the most recent records survive, newest first. With capacity 5
	// and eviction batches of 2, the 12th write leaves exactly these four.
	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	var prompts []string
	for _, r := range all {
		prompts = append(prompts, r.Prompt)
	}
	assert.Equal(t, []string{"prompt 11", "prompt 10", "prompt 9", "prompt 8"}, prompts)
}

func TestRecords_ListByUserWindow(t *testing.T) {
	storage := memory.New()
	records := genroute.NewRecords(storage, nil, nil, 90, 0)
	ctx := context.Background()

	now := time.Now().UTC()

	recent := videoRecord("u1", "recent")
	recent.CreatedAt = now.AddDate(0, 0, -10)
	require.NoError(t, records.Create(ctx, recent))

	old := videoRecord("u1", "old")
	old.CreatedAt = now.AddDate(0, 0, -120)
	require.NoError(t, records.Create(ctx, old))

	other := videoRecord("u2", "someone else")
	other.CreatedAt = now.AddDate(0, 0, -1)
	require.NoError(t, records.Create(ctx, other))

	got, err := records.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "recent", got[0].Prompt)

	// The old record is excluded from the window, not deleted.
	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecords_ListAllNewestFirst(t *testing.T) {
	storage := memory.New()
	records := genroute.NewRecords(storage, nil, nil, 0, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, records.Create(ctx, videoRecord("u1", fmt.Sprintf("p%d", i))))
	}

	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p2", all[0].Prompt)
	assert.Equal(t, "p0", all[2].Prompt)
}
