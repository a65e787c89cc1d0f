package routes

import (
	"blooddonation_backend/internal/handlers"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	guards *middleware.Guards,
	ipLimiter *middleware.IPRateLimiter,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api")
	if ipLimiter != nil {
		api.Use(ipLimiter.Middleware())
	}
	{
		appHandlers.AuthHandler.RegisterRoutes(api, guards)
		appHandlers.ChatHandler.RegisterRoutes(api, guards)
		appHandlers.NotificationHandler.RegisterRoutes(api, guards)
		appHandlers.DonationHandler.RegisterRoutes(api, guards)
		appHandlers.AdminHandler.RegisterRoutes(api, guards)
	}

	// Токен передается в ?token=, браузер не умеет ставить заголовок при upgrade
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(guards.Auth)
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
