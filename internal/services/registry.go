package services

import (
	"blooddonation_backend/internal/email"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	ChatService         ChatService
	NotificationService NotificationService
	LifecycleService    LifecycleService
	EmailService        email.Provider
}
