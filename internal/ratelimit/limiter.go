package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 50
)

// Store - счетчик фиксированного окна. Hit атомарно учитывает действие
// и сообщает, укладывается ли оно в лимит.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, limit int) (bool, error)
}

// Limiter - ограничение частоты действий пользователя
type Limiter struct {
	store  Store
	window time.Duration
	limit  int
	prefix string
}

func New(store Store, window time.Duration, limit int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{store: store, window: window, limit: limit, prefix: "chat_rate"}
}

// Allow учитывает одно действие пользователя
func (l *Limiter) Allow(ctx context.Context, userID uint) (bool, error) {
	return l.store.Hit(ctx, fmt.Sprintf("%s:%d", l.prefix, userID), l.window, l.limit)
}

func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) Limit() int            { return l.limit }
