package ratelimit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"blooddonation_backend/internal/ratelimit"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_BoundaryAndRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.New(ratelimit.NewMemoryStoreWithClock(clock.Now), time.Minute, 50)
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		ok, err := limiter.Allow(ctx, 7)
		require.NoError(t, err)
		require.True(t, ok, "действие %d должно пройти", i)
	}

	ok, err := limiter.Allow(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok, "51-е действие в окне должно быть отклонено")

	// Другой пользователь не затронут
	ok, _ = limiter.Allow(ctx, 8)
	assert.True(t, ok)

	// Отказы не продлевают окно
	clock.Advance(59 * time.Second)
	ok, _ = limiter.Allow(ctx, 7)
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, _ = limiter.Allow(ctx, 7)
	assert.True(t, ok, "после смены окна счетчик сбрасывается")
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 0, 0)
	assert.Equal(t, 60*time.Second, limiter.Window())
	assert.Equal(t, 50, limiter.Limit())
}

func TestMemoryStore_ConcurrentHitsOnSameKey(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := store.Hit(ctx, "k", time.Minute, 50)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

// fakeRedis реализует Incr/Expire/TTL без сервера. Время не идет:
// истечение ключа моделируется через expireNow.
type fakeRedis struct {
	counts      map[string]int64
	expires     map[string]time.Duration
	failExpires int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.failExpires > 0 {
		f.failExpires--
		return redis.NewBoolResult(false, errors.New("i/o timeout"))
	}
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	if _, ok := f.counts[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	if ttl, ok := f.expires[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

// expireNow - ключ с TTL исчезает, как по истечении окна
func (f *fakeRedis) expireNow(key string) bool {
	if _, ok := f.expires[key]; !ok {
		return false
	}
	delete(f.counts, key)
	delete(f.expires, key)
	return true
}

func TestRedisStore_FixedWindow(t *testing.T) {
	fake := newFakeRedis()
	limiter := ratelimit.New(ratelimit.NewRedisStore(fake), time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	key := fmt.Sprintf("chat_rate:%d", 1)
	assert.Equal(t, time.Minute, fake.expires[key], "TTL ставится на первом действии")
	assert.Len(t, fake.expires, 1)
}

func TestRedisStore_RecoversWhenFirstExpireFails(t *testing.T) {
	fake := newFakeRedis()
	fake.failExpires = 1
	limiter := ratelimit.New(ratelimit.NewRedisStore(fake), time.Minute, 50)
	ctx := context.Background()
	key := fmt.Sprintf("chat_rate:%d", 1)

	_, err := limiter.Allow(ctx, 1)
	require.Error(t, err, "ошибка EXPIRE отдается вызывающему")
	_, hasTTL := fake.expires[key]
	require.False(t, hasTTL)

	ok, err := limiter.Allow(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, fake.expires[key], "ключ без срока получает TTL на следующем действии")

	for i := 0; i < 60; i++ {
		_, _ = limiter.Allow(ctx, 1)
	}
	ok, _ = limiter.Allow(ctx, 1)
	require.False(t, ok)

	// окно истекло - пользователь снова может писать
	require.True(t, fake.expireNow(key))
	ok, err = limiter.Allow(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
