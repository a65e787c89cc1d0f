package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const sweepEvery = 1024

type windowEntry struct {
	mu      sync.Mutex
	count   int
	started time.Time
	dead    bool // удалена sweep, нужна новая запись
}

// MemoryStore - счетчики в памяти процесса. Блокировка на ключ, глобального лока нет.
type MemoryStore struct {
	entries sync.Map // key -> *windowEntry
	now     func() time.Time
	hits    atomic.Uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// NewMemoryStoreWithClock - для тестов
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, limit int) (bool, error) {
	now := s.now()

	if s.hits.Add(1)%sweepEvery == 0 {
		s.sweep(now, window)
	}

	for {
		v, _ := s.entries.LoadOrStore(key, &windowEntry{})
		if allowed, live := v.(*windowEntry).hit(now, window, limit); live {
			return allowed, nil
		}
	}
}

// hit учитывает действие в окне записи. live=false - запись уже удалена из карты.
func (e *windowEntry) hit(now time.Time, window time.Duration, limit int) (allowed, live bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead {
		return false, false
	}
	if e.started.IsZero() || now.Sub(e.started) >= window {
		e.started = now
		e.count = 1
		return true, true
	}
	if e.count >= limit {
		// отказ не продлевает окно и не увеличивает счетчик
		return false, true
	}
	e.count++
	return true, true
}

// sweep удаляет истекшие окна. Запись помечается dead под своим мьютексом,
// чтобы Hit, успевший ее загрузить, взял новую.
func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	s.entries.Range(func(k, v any) bool {
		e := v.(*windowEntry)
		e.mu.Lock()
		if !e.started.IsZero() && now.Sub(e.started) >= window {
			e.dead = true
			s.entries.CompareAndDelete(k, v)
		}
		e.mu.Unlock()
		return true
	})
}
