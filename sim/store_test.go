package sim

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/peterldowns/testy/assert"
)

func TestStoreLists(t *testing.T) {
	clock := NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(clock)
	ctx := context.Background()

	err := store.PushFront(ctx, "list", "a")
	assert.NoError(t, err)
	err = store.PushFront(ctx, "list", "b")
	assert.NoError(t, err)
	err = store.PushFront(ctx, "list", "c")
	assert.NoError(t, err)

	// Newest first.
	entries, err := store.Range(ctx, "list", 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, entries, []string{"c", "b", "a"})

	entries, err = store.Range(ctx, "list", 0, 1)
	assert.NoError(t, err)
	assert.Equal(t, entries, []string{"c", "b"})

	// Out of range reads are empty, not errors.
	entries, err = store.Range(ctx, "missing", 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, len(entries), 0)

	err = store.Trim(ctx, "list", 2)
	assert.NoError(t, err)
	entries, err = store.Range(ctx, "list", 0, -1)
	assert.NoError(t, err)
	assert.Equal(t, entries, []string{"c", "b"})
}

func TestStoreSortedSets(t *testing.T) {
	clock := NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(clock)
	ctx := context.Background()

	err := store.AddToSet(ctx, "set", 3, "c")
	assert.NoError(t, err)
	err = store.AddToSet(ctx, "set", 1, "a")
	assert.NoError(t, err)
	err = store.AddToSet(ctx, "set", 2, "b")
	assert.NoError(t, err)

	members, err := store.RangeByScore(ctx, "set", 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, members, []string{"a", "b", "c"})

	members, err = store.RangeByScore(ctx, "set", 2, 3)
	assert.NoError(t, err)
	assert.Equal(t, members, []string{"b", "c"})

	// Re-adding a member updates its score instead of duplicating it.
	err = store.AddToSet(ctx, "set", 5, "a")
	assert.NoError(t, err)
	members, err = store.RangeByScore(ctx, "set", 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, members, []string{"b", "c", "a"})

	err = store.RemoveByScoreRange(ctx, "set", 0, 3)
	assert.NoError(t, err)
	members, err = store.RangeByScore(ctx, "set", 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, members, []string{"a"})
}

func TestStoreExpiringKeys(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewVirtualClock(start)
	store := NewStore(clock)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.Equal(t, err, shared.ErrKeyNotFound, cmpopts.EquateErrors())

	err = store.Set(ctx, "key", "value", time.Hour)
	assert.NoError(t, err)

	value, err := store.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Equal(t, value, "value")

	// Expiry honors the simulation clock.
	clock.SetNow(start.Add(2 * time.Hour))
	_, err = store.Get(ctx, "key")
	assert.Equal(t, err, shared.ErrKeyNotFound, cmpopts.EquateErrors())

	// A zero expiry stores indefinitely.
	err = store.Set(ctx, "keep", "value", 0)
	assert.NoError(t, err)
	clock.SetNow(start.Add(1000 * time.Hour))
	value, err = store.Get(ctx, "keep")
	assert.NoError(t, err)
	assert.Equal(t, value, "value")
}
