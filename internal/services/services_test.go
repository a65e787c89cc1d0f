package services_test

import (
	"io"
	"os"
	"sync"
	"testing"

	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/permissions"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/workers"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/test/helpers"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.InitWithWriter("test", io.Discard)
	os.Exit(m.Run())
}

type pushed struct {
	UserID    uint
	EventType string
	Data      any
}

// recordingPusher запоминает все ws-события
type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPusher) PushToUser(userID uint, eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{UserID: userID, EventType: eventType, Data: data})
}

func (p *recordingPusher) For(userID uint, eventType string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, e := range p.events {
		if e.UserID == userID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db           *gorm.DB
	pusher       *recordingPusher
	notification services.NotificationService
	chat         services.ChatService
	lifecycle    services.LifecycleService
}

func newFixture(t *testing.T, worker *workers.NotificationWorker) *fixture {
	t.Helper()

	db := helpers.NewTestDB(t)
	pusher := &recordingPusher{}
	userRepo := repositories.NewUserRepository()
	requestRepo := repositories.NewRequestRepository()

	notification := services.NewNotificationService(repositories.NewNotificationRepository(), userRepo, worker, pusher, nil)
	return &fixture{
		db:           db,
		pusher:       pusher,
		notification: notification,
		chat:         services.NewChatService(repositories.NewChatRepository(), userRepo, requestRepo, permissions.NewEngine(), notification, pusher),
		lifecycle:    services.NewLifecycleService(userRepo, requestRepo, notification),
	}
}

func requireAppError(t *testing.T, err error, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "ожидалась AppError, получено %T: %v", err, err)
	require.Equal(t, status, appErr.HTTPCode, appErr.Message)
	return appErr
}
