package logger

import (
	"context"
	"log/slog"
)

// ключ - пустая структура, не пересекается с чужими строковыми ключами
type metaKey struct{}

// requestMeta - поля запроса, которые попадают в каждую строку лога
type requestMeta struct {
	requestID string
	userID    uint
}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	meta, _ := ctx.Value(metaKey{}).(requestMeta)
	return meta
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	meta := metaFrom(ctx)
	meta.requestID = requestID
	return context.WithValue(ctx, metaKey{}, meta)
}

// WithUserID - вызывается после проверки токена
func WithUserID(ctx context.Context, userID uint) context.Context {
	meta := metaFrom(ctx)
	meta.userID = userID
	return context.WithValue(ctx, metaKey{}, meta)
}

func GetRequestID(ctx context.Context) string {
	return metaFrom(ctx).requestID
}

func GetUserID(ctx context.Context) uint {
	return metaFrom(ctx).userID
}

// FromContext - глобальный логгер с request_id и user_id
func FromContext(ctx context.Context) *slog.Logger {
	meta := metaFrom(ctx)
	l := GetLogger()
	if meta.requestID != "" {
		l = l.With("request_id", meta.requestID)
	}
	if meta.userID != 0 {
		l = l.With("user_id", meta.userID)
	}
	return l
}

func logCtx(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	FromContext(ctx).Log(ctx, level, msg, args...)
}

func CtxDebug(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelDebug, msg, args...)
}

func CtxInfo(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelInfo, msg, args...)
}

func CtxWarn(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelWarn, msg, args...)
}

func CtxError(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelError, msg, args...)
}

// CtxWithError - CtxError с полем error
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err.Error()}, args...)
	}
	logCtx(ctx, slog.LevelError, msg, args...)
}
