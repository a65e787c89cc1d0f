package workers

import (
	"context"
	"sync"

	"blooddonation_backend/internal/logger"
)

// Task - единица асинхронной доставки уведомлений
type Task struct {
	Event string
	Run   func(ctx context.Context) error
}

// NotificationWorker - буферизованная очередь и пул горутин.
// Enqueue не блокирует: при полной очереди задача отбрасывается с записью в лог.
type NotificationWorker struct {
	queue   chan Task
	workers int

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started bool
}

func NewNotificationWorker(queueSize, workers int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &NotificationWorker{
		queue:   make(chan Task, queueSize),
		workers: workers,
	}
}

// Start запускает обработчики. При отмене ctx они дорабатывают очередь и выходят.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}

	go func() {
		<-ctx.Done()
		w.close()
	}()
}

func (w *NotificationWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	for task := range w.queue {
		w.run(ctx, task)
	}
}

func (w *NotificationWorker) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification task panicked", "event", task.Event, "panic", r)
		}
	}()

	// доставка не должна обрываться из-за отмены контекста запроса
	err := task.Run(context.WithoutCancel(ctx))
	logger.WorkerLog("notification_worker", task.Event, err)
}

// Enqueue ставит задачу в очередь. false - очередь полна или закрыта.
func (w *NotificationWorker) Enqueue(task Task) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		logger.Warn("notification queue closed, task dropped", "event", task.Event)
		return false
	}

	select {
	case w.queue <- task:
		return true
	default:
		logger.Warn("notification queue full, task dropped", "event", task.Event)
		return false
	}
}

func (w *NotificationWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
}

// Stop закрывает очередь и ждет обработки оставшихся задач
func (w *NotificationWorker) Stop() {
	w.close()
	w.wg.Wait()
}
