package ratelimit

import (
	"context"
	"time"

	"blooddonation_backend/internal/logger"

	"github.com/go-redis/redis/v8"
)

// counter - подмножество redis.Cmdable, нужное окну
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisStore - общий для всех инстансов счетчик: INCR, затем EXPIRE.
// Ключ без TTL (EXPIRE первого удара не прошел) получает TTL на следующем ударе.
type RedisStore struct {
	client counter
}

func NewRedisStore(client counter) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration, limit int) (bool, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	needsExpire := count == 1
	if !needsExpire {
		ttl, err := s.client.TTL(ctx, key).Result()
		if err != nil {
			return false, err
		}
		// -1: ключ есть, срока нет
		needsExpire = ttl == -1
	}
	if needsExpire {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// ConnectRedis возвращает nil, если Redis недоступен: вызывающий переходит на MemoryStore
func ConnectRedis(addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed, falling back to in-memory rate limiting", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis", "addr", addr)
	return client
}
