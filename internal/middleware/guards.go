package middleware

import (
	"blooddonation_backend/internal/auth"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/ratelimit"
	"blooddonation_backend/internal/repositories"

	"github.com/gin-gonic/gin"
)

// Guards - готовые middleware для регистрации защищенных маршрутов
type Guards struct {
	Auth     gin.HandlerFunc
	Approved gin.HandlerFunc
	ChatRate gin.HandlerFunc
}

func NewGuards(tokens *auth.TokenManager, users repositories.UserRepository, limiter *ratelimit.Limiter) *Guards {
	return &Guards{
		Auth:     AuthMiddleware(tokens),
		Approved: RequireApproved(users),
		ChatRate: ChatRateLimit(limiter),
	}
}

// Protected - аутентифицированный и одобренный пользователь
func (g *Guards) Protected() []gin.HandlerFunc {
	return []gin.HandlerFunc{g.Auth, g.Approved}
}

// Admin - только для администраторов
func (g *Guards) Admin() []gin.HandlerFunc {
	return []gin.HandlerFunc{g.Auth, g.Approved, RequireRoles(models.UserRoleAdmin)}
}
