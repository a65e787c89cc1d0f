package dto

import (
	"time"

	"blooddonation_backend/internal/models"
)

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,min=2,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Phone    string          `json:"phone" validate:"omitempty,max=32"`
	Role     models.UserRole `json:"role" validate:"required,is-user-role"`
	City     string          `json:"city" validate:"required,max=100"`

	// Поля донора
	BloodType models.BloodType `json:"blood_type,omitempty" validate:"required_if=Role donor,is-blood-type"`

	// Поля больницы
	HospitalName string `json:"hospital_name,omitempty" validate:"required_if=Role hospital,max=200"`
	Address      string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse - ответ с токеном
type AuthResponse struct {
	Success     bool         `json:"success"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}
