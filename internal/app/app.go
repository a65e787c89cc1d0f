package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blooddonation_backend/database"
	"blooddonation_backend/internal/auth"
	"blooddonation_backend/internal/config"
	"blooddonation_backend/internal/email"
	"blooddonation_backend/internal/handlers"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/permissions"
	"blooddonation_backend/internal/ratelimit"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/routes"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/validator"
	"blooddonation_backend/internal/workers"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		// Без админа некому одобрять пользователей - не запускаем сервер
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ginRouter := SetupRouter(ctx, cfg, gormDB, nil)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	_ = sqlDB.Close()
	logger.Info("Server exited")
}

// SetupRouter собирает зависимости и маршруты.
// ctx управляет жизнью фоновых горутин (WebSocket-менеджер, воркер уведомлений).
// emailProvider == nil - провайдер строится из конфигурации.
func SetupRouter(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, emailProvider email.Provider) *gin.Engine {
	apperrors.SetDebug(cfg.Server.Env == "development")
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	if emailProvider == nil {
		emailProvider = initializeEmail(cfg)
	}

	// 1. WebSocket
	wsManager := ws.NewWebSocketManager()
	go wsManager.Run(ctx)
	wsHandler := ws.NewWebSocketHandler(wsManager, cfg.OriginAllowed)

	// 2. Воркер уведомлений
	var worker *workers.NotificationWorker
	if cfg.Notifications.Async {
		worker = workers.NewNotificationWorker(cfg.Notifications.QueueSize, cfg.Notifications.Workers)
		worker.Start(ctx)
	}

	// 3. Сервисы
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	userRepo := repositories.NewUserRepository()
	serviceContainer := initializeServices(userRepo, tokens, worker, wsManager, emailProvider)

	// 4. Хэндлеры
	appHandlers := initializeHandlers(serviceContainer)

	// 5. Лимиты и guard-цепочки
	limiter := ratelimit.New(initializeRateStore(cfg),
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxActions,
	)
	guards := middleware.NewGuards(tokens, userRepo, limiter)

	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.IPRPS, cfg.RateLimit.IPBurst)
	go runLimiterCleanup(ctx, ipLimiter)

	// 6. Gin
	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, guards, ipLimiter)

	return ginRouter
}

func initializeEmail(cfg *config.Config) email.Provider {
	if !cfg.Email.Enabled {
		logger.Warn("Email disabled, using in-memory provider")
		return &MockEmailProvider{}
	}

	provider := email.NewGomailProvider(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
	if err := provider.Validate(); err != nil {
		logger.Error("Invalid SMTP configuration, using in-memory provider", "error", err)
		return &MockEmailProvider{}
	}
	return provider
}

func initializeRateStore(cfg *config.Config) ratelimit.Store {
	if cfg.Redis.Enabled {
		if client := ratelimit.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
			return ratelimit.NewRedisStore(client)
		}
	}
	return ratelimit.NewMemoryStore()
}

func runLimiterCleanup(ctx context.Context, l *middleware.IPRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func initializeServices(
	userRepo repositories.UserRepository,
	tokens *auth.TokenManager,
	worker *workers.NotificationWorker,
	wsManager *ws.WebSocketManager,
	emailService email.Provider,
) *services.ServiceContainer {
	// --- Репозитории ---
	requestRepo := repositories.NewRequestRepository()
	chatRepo := repositories.NewChatRepository()
	notificationRepo := repositories.NewNotificationRepository()

	// --- Сервисы ---
	notificationService := services.NewNotificationService(notificationRepo, userRepo, worker, wsManager, emailService)
	authService := services.NewAuthService(userRepo, tokens, notificationService)
	chatService := services.NewChatService(chatRepo, userRepo, requestRepo, permissions.NewEngine(), notificationService, wsManager)
	lifecycleService := services.NewLifecycleService(userRepo, requestRepo, notificationService)

	return &services.ServiceContainer{
		AuthService:         authService,
		ChatService:         chatService,
		NotificationService: notificationService,
		LifecycleService:    lifecycleService,
		EmailService:        emailService,
	}
}

func initializeHandlers(services *services.ServiceContainer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, services.AuthService),
		ChatHandler:         handlers.NewChatHandler(baseHandler, services.ChatService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, services.NotificationService),
		DonationHandler:     handlers.NewDonationHandler(baseHandler, services.LifecycleService),
		AdminHandler:        handlers.NewAdminHandler(baseHandler, services.LifecycleService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.OriginAllowed))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	var adminUser models.User
	result := db.Where("email = ?", adminEmail).First(&adminUser)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Name:         "Administrator",
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusApproved,
	}
	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	logger.Info("✅ Successfully created first admin user", "email", adminEmail)
	return nil
}
