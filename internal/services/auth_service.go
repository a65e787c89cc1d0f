package services

import (
	"context"
	"errors"
	"strings"

	"blooddonation_backend/internal/auth"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*models.User, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GetCurrentUser(db *gorm.DB, userID uint) (*models.User, error)
}

type AuthServiceImpl struct {
	userRepo            repositories.UserRepository
	tokens              *auth.TokenManager
	notificationService NotificationService
}

func NewAuthService(
	userRepo repositories.UserRepository,
	tokens *auth.TokenManager,
	notificationService NotificationService,
) AuthService {
	return &AuthServiceImpl{
		userRepo:            userRepo,
		tokens:              tokens,
		notificationService: notificationService,
	}
}

// Register - регистрация нового пользователя (статус pending до одобрения админом)
func (s *AuthServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*models.User, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	if req.Role == models.UserRoleAdmin || !req.Role.IsValid() {
		return nil, apperrors.NewBadRequestError("Invalid role")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         req.Role,
		Status:       models.UserStatusPending,
	}
	if err := s.userRepo.Create(tx, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	switch req.Role {
	case models.UserRoleDonor:
		profile := &models.DonorProfile{
			UserID:      user.ID,
			BloodType:   req.BloodType,
			City:        req.City,
			IsAvailable: true,
		}
		if err := s.userRepo.CreateDonorProfile(tx, profile); err != nil {
			return nil, apperrors.InternalError(err)
		}
		user.DonorProfile = profile
	case models.UserRoleHospital:
		hospital := &models.Hospital{
			UserID:  user.ID,
			Name:    req.HospitalName,
			City:    req.City,
			Address: req.Address,
		}
		if err := s.userRepo.CreateHospital(tx, hospital); err != nil {
			return nil, apperrors.InternalError(err)
		}
		user.Hospital = hospital
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	switch user.Role {
	case models.UserRoleDonor:
		s.notificationService.NotifyAdminsNewDonor(ctx, db, user)
	case models.UserRoleHospital:
		s.notificationService.NotifyAdminsNewHospital(ctx, db, user)
	case models.UserRoleSeeker:
		s.notificationService.NotifyAdminsNewSeeker(ctx, db, user)
	}

	return user, nil
}

// Login - аутентификация пользователя
func (s *AuthServiceImpl) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.NewForbiddenError("Account is suspended")
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		Success:     true,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// GetCurrentUser - профиль вместе с данными донора или больницы
func (s *AuthServiceImpl) GetCurrentUser(db *gorm.DB, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	switch user.Role {
	case models.UserRoleDonor:
		if profile, err := s.userRepo.FindDonorProfileByUserID(db, userID); err == nil {
			user.DonorProfile = profile
		}
	case models.UserRoleHospital:
		if hospital, err := s.userRepo.FindHospitalByUserID(db, userID); err == nil {
			user.Hospital = hospital
		}
	}
	return user, nil
}
