package helpers

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"blooddonation_backend/database"
	"blooddonation_backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultPassword = "password123"

// NewTestDB - отдельная in-memory sqlite база на каждый тест
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Не удалось открыть тестовую БД: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Не удалось получить *sql.DB из GORM: %v", err)
	}
	// одно соединение: shared cache sqlite не любит параллельных писателей
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Не удалось выполнить AutoMigrate: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var (
	hashOnce      sync.Once
	hashedDefault string
	hashErr       error
)

func defaultHash(t *testing.T) string {
	hashOnce.Do(func() {
		var hash []byte
		hash, hashErr = bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		hashedDefault = string(hash)
	})
	if hashErr != nil {
		t.Fatalf("Не удалось хешировать пароль: %v", hashErr)
	}
	return hashedDefault
}

// CreateUser создает одобренного пользователя с паролем DefaultPassword
func CreateUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "." + uuid.NewString()[:8] + "@test.com",
		PasswordHash: defaultHash(t),
		Role:         role,
		Status:       models.UserStatusApproved,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Не удалось создать пользователя %s: %v", name, err)
	}
	return user
}

func CreateAdmin(t *testing.T, db *gorm.DB, name string) *models.User {
	return CreateUser(t, db, name, models.UserRoleAdmin)
}

func CreateSeeker(t *testing.T, db *gorm.DB, name string) *models.User {
	return CreateUser(t, db, name, models.UserRoleSeeker)
}

// CreateDonor - пользователь-донор вместе с профилем
func CreateDonor(t *testing.T, db *gorm.DB, name string, bloodType models.BloodType, city string) (*models.User, *models.DonorProfile) {
	t.Helper()

	user := CreateUser(t, db, name, models.UserRoleDonor)
	profile := &models.DonorProfile{
		UserID:      user.ID,
		BloodType:   bloodType,
		City:        city,
		IsAvailable: true,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Не удалось создать профиль донора: %v", err)
	}
	return user, profile
}

// CreateHospital - пользователь-больница вместе с записью hospitals
func CreateHospital(t *testing.T, db *gorm.DB, name, city string) (*models.User, *models.Hospital) {
	t.Helper()

	user := CreateUser(t, db, name, models.UserRoleHospital)
	hospital := &models.Hospital{
		UserID: user.ID,
		Name:   name,
		City:   city,
	}
	if err := db.Create(hospital).Error; err != nil {
		t.Fatalf("Не удалось создать больницу: %v", err)
	}
	return user, hospital
}

// CreateRequest - заявка в нужном статусе, в обход жизненного цикла
func CreateRequest(t *testing.T, db *gorm.DB, requester *models.User, hospital *models.Hospital, bloodType models.BloodType, status models.RequestStatus) *models.BloodRequest {
	t.Helper()

	request := &models.BloodRequest{
		RequesterID:   requester.ID,
		RequesterRole: requester.Role,
		PatientName:   "Patient",
		BloodType:     bloodType,
		UnitsNeeded:   1,
		Urgency:       models.UrgencyNormal,
		City:          "Almaty",
		Status:        status,
	}
	if hospital != nil {
		request.HospitalID = &hospital.ID
		request.City = hospital.City
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("Не удалось создать заявку: %v", err)
	}
	return request
}

// CreateDonation - донация донора по заявке
func CreateDonation(t *testing.T, db *gorm.DB, profile *models.DonorProfile, request *models.BloodRequest, status models.DonationStatus) *models.Donation {
	t.Helper()

	donation := &models.Donation{
		DonorID:   profile.ID,
		RequestID: request.ID,
		Status:    status,
	}
	if err := db.Create(donation).Error; err != nil {
		t.Fatalf("Не удалось создать донацию: %v", err)
	}
	return donation
}

// CreateVoluntary - добровольная сдача, опционально с назначенной больницей
func CreateVoluntary(t *testing.T, db *gorm.DB, donor *models.User, hospitalUser *models.User, status models.VoluntaryStatus) *models.VoluntaryDonation {
	t.Helper()

	v := &models.VoluntaryDonation{
		DonorUserID: donor.ID,
		City:        "Almaty",
		Status:      status,
	}
	if hospitalUser != nil {
		v.HospitalUserID = &hospitalUser.ID
		at := time.Now().Add(48 * time.Hour)
		v.ScheduledAt = &at
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("Не удалось создать добровольную сдачу: %v", err)
	}
	return v
}
