package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SweptEntryIsNotReused(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	ok, err := store.Hit(ctx, "k", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, ok)

	v, found := store.entries.Load("k")
	require.True(t, found)
	stale := v.(*windowEntry)

	now = now.Add(time.Minute)
	store.sweep(now, time.Minute)

	_, found = store.entries.Load("k")
	assert.False(t, found, "истекшее окно удалено")

	// Hit, загрузивший запись до sweep, не должен ее использовать
	allowed, live := stale.hit(now, time.Minute, 2)
	assert.False(t, allowed)
	assert.False(t, live)

	// новое окно считается с нуля ровно один раз
	for i := 0; i < 2; i++ {
		ok, err = store.Hit(ctx, "k", time.Minute, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err = store.Hit(ctx, "k", time.Minute, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ = store.entries.Load("k")
	assert.NotSame(t, stale, v.(*windowEntry))
}

func TestMemoryStore_SweepKeepsLiveWindows(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := store.Hit(ctx, "k", time.Minute, 2)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	store.sweep(now, time.Minute)

	v, found := store.entries.Load("k")
	require.True(t, found)
	assert.False(t, v.(*windowEntry).dead)

	ok, _ := store.Hit(ctx, "k", time.Minute, 2)
	assert.True(t, ok)
	ok, _ = store.Hit(ctx, "k", time.Minute, 2)
	assert.False(t, ok, "окно не сброшено sweep")
}
