package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationWorker_ProcessesQueuedTasks(t *testing.T) {
	w := NewNotificationWorker(16, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		ok := w.Enqueue(Task{Event: "test", Run: func(context.Context) error {
			done.Add(1)
			return nil
		}})
		assert.True(t, ok)
	}

	w.Stop()
	assert.Equal(t, int32(10), done.Load())
}

func TestNotificationWorker_FailuresAndPanicsDoNotStopWorker(t *testing.T) {
	w := NewNotificationWorker(4, 1)
	w.Start(context.Background())

	var done atomic.Int32
	w.Enqueue(Task{Event: "fails", Run: func(context.Context) error { return errors.New("boom") }})
	w.Enqueue(Task{Event: "panics", Run: func(context.Context) error { panic("boom") }})
	w.Enqueue(Task{Event: "ok", Run: func(context.Context) error { done.Add(1); return nil }})

	w.Stop()
	assert.Equal(t, int32(1), done.Load())
}

func TestNotificationWorker_FullQueueDropsWithoutBlocking(t *testing.T) {
	// Воркеры не запущены, очередь на 1 задачу
	w := NewNotificationWorker(1, 1)
	noop := Task{Event: "noop", Run: func(context.Context) error { return nil }}

	assert.True(t, w.Enqueue(noop))
	assert.False(t, w.Enqueue(noop))
}

func TestNotificationWorker_EnqueueAfterStop(t *testing.T) {
	w := NewNotificationWorker(1, 1)
	w.Start(context.Background())
	w.Stop()

	assert.False(t, w.Enqueue(Task{Event: "late", Run: func(context.Context) error { return nil }}))
}
