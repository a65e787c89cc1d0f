package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// current - глобальный логгер; пишут в него и горутины воркеров
var current atomic.Pointer[slog.Logger]

// Init настраивает глобальный логгер под окружение: development, test или production
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter - Init с произвольным выводом (тесты)
func InitWithWriter(env string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "development":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	case "test":
		// в тестах только ошибки
		opts.Level = slog.LevelError
		opts.AddSource = false
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	current.Store(l)
	slog.SetDefault(l)
}

// GetLogger - глобальный логгер; до Init пишет в stdout в режиме development
func GetLogger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	fallback := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	current.CompareAndSwap(nil, fallback)
	return current.Load()
}

// ============================================
// Convenience функции
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// ============================================
// Специализированные логгеры
// ============================================

// PermissionLog логирует решение движка прав чата
func PermissionLog(senderID, receiverID uint, allowed bool, reason string) {
	GetLogger().Debug("chat permission",
		"sender_id", senderID,
		"receiver_id", receiverID,
		"allowed", allowed,
		"reason", reason,
	)
}

// NotificationLog логирует доставку уведомлений одного события
func NotificationLog(event string, recipients int, err error) {
	fields := []any{
		"event", event,
		"recipients", recipients,
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("notification delivery failed", fields...)
		return
	}
	GetLogger().Debug("notification delivered", fields...)
}

// WorkerLog логирует background worker операцию
func WorkerLog(worker, operation string, err error) {
	fields := []any{
		"worker", worker,
		"operation", operation,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Debug("worker operation completed", fields...)
	}
}
