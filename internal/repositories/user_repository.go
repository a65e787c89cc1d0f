package repositories

import (
	"errors"
	"strings"

	"blooddonation_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrDonorProfileNotFound = errors.New("donor profile not found")
	ErrHospitalNotFound     = errors.New("hospital not found")
)

type UserRepository interface {
	// User operations
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id uint) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	UpdateStatus(db *gorm.DB, id uint, status models.UserStatus) error
	FindApprovedIDsByRoles(db *gorm.DB, roles ...models.UserRole) ([]uint, error)
	Search(db *gorm.DB, filter UserSearchFilter) ([]models.User, error)
	FindEmailsByIDs(db *gorm.DB, ids []uint) ([]string, error)
	FindByIDs(db *gorm.DB, ids []uint) ([]models.User, error)

	// Donor profile operations
	CreateDonorProfile(db *gorm.DB, profile *models.DonorProfile) error
	FindDonorProfileByUserID(db *gorm.DB, userID uint) (*models.DonorProfile, error)
	FindDonorProfileByID(db *gorm.DB, id uint) (*models.DonorProfile, error)
	FindApprovedDonorProfiles(db *gorm.DB) ([]models.DonorProfile, error)
	RecordCompletedDonation(db *gorm.DB, profileID uint, fields map[string]interface{}) error

	// Hospital operations
	CreateHospital(db *gorm.DB, hospital *models.Hospital) error
	FindHospitalByID(db *gorm.DB, id uint) (*models.Hospital, error)
	FindHospitalByUserID(db *gorm.DB, userID uint) (*models.Hospital, error)
}

type UserRepositoryImpl struct{}

// UserSearchFilter - фильтр для поиска собеседников
type UserSearchFilter struct {
	ExcludeID uint
	Roles     []models.UserRole
	Search    string
	OnlyIDs   []uint // nil - без ограничения, пустой срез - никто
	Limit     int
}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserAlreadyExists
	}
	return db.Create(user).Error
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) UpdateStatus(db *gorm.DB, id uint, status models.UserStatus) error {
	result := db.Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) FindApprovedIDsByRoles(db *gorm.DB, roles ...models.UserRole) ([]uint, error) {
	var ids []uint
	query := db.Model(&models.User{}).Where("status = ?", models.UserStatusApproved)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	err := query.Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepositoryImpl) Search(db *gorm.DB, filter UserSearchFilter) ([]models.User, error) {
	var users []models.User

	if filter.OnlyIDs != nil && len(filter.OnlyIDs) == 0 {
		return users, nil
	}
	if len(filter.Roles) == 0 {
		return users, nil
	}

	query := db.Where("status = ?", models.UserStatusApproved).
		Where("id <> ?", filter.ExcludeID).
		Where("role IN ?", filter.Roles)

	if filter.OnlyIDs != nil {
		query = query.Where("id IN ?", filter.OnlyIDs)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	err := query.Order("name ASC").Limit(limit).Find(&users).Error
	return users, err
}

// Donor profile operations

func (r *UserRepositoryImpl) CreateDonorProfile(db *gorm.DB, profile *models.DonorProfile) error {
	return db.Create(profile).Error
}

func (r *UserRepositoryImpl) FindDonorProfileByUserID(db *gorm.DB, userID uint) (*models.DonorProfile, error) {
	var profile models.DonorProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *UserRepositoryImpl) FindDonorProfileByID(db *gorm.DB, id uint) (*models.DonorProfile, error) {
	var profile models.DonorProfile
	err := db.First(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindApprovedDonorProfiles - кандидаты для подбора доноров (фильтрация в algorithms)
func (r *UserRepositoryImpl) FindApprovedDonorProfiles(db *gorm.DB) ([]models.DonorProfile, error) {
	var profiles []models.DonorProfile
	err := db.Preload("User").
		Joins("JOIN users ON users.id = donor_profiles.user_id").
		Where("users.status = ? AND users.role = ?", models.UserStatusApproved, models.UserRoleDonor).
		Order("donor_profiles.id ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *UserRepositoryImpl) RecordCompletedDonation(db *gorm.DB, profileID uint, fields map[string]interface{}) error {
	fields["total_donations"] = gorm.Expr("total_donations + 1")
	result := db.Model(&models.DonorProfile{}).Where("id = ?", profileID).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDonorProfileNotFound
	}
	return nil
}

// Hospital operations

func (r *UserRepositoryImpl) CreateHospital(db *gorm.DB, hospital *models.Hospital) error {
	return db.Create(hospital).Error
}

func (r *UserRepositoryImpl) FindHospitalByID(db *gorm.DB, id uint) (*models.Hospital, error) {
	var hospital models.Hospital
	err := db.First(&hospital, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	return &hospital, nil
}

func (r *UserRepositoryImpl) FindHospitalByUserID(db *gorm.DB, userID uint) (*models.Hospital, error) {
	var hospital models.Hospital
	err := db.Where("user_id = ?", userID).First(&hospital).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	return &hospital, nil
}

func (r *UserRepositoryImpl) FindEmailsByIDs(db *gorm.DB, ids []uint) ([]string, error) {
	var emails []string
	if len(ids) == 0 {
		return emails, nil
	}
	err := db.Model(&models.User{}).Where("id IN ?", ids).Pluck("email", &emails).Error
	return emails, err
}

func (r *UserRepositoryImpl) FindByIDs(db *gorm.DB, ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}
