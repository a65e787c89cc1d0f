package repositories

import (
	"errors"

	"blooddonation_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound   = errors.New("blood request not found")
	ErrDonationNotFound  = errors.New("donation not found")
	ErrVoluntaryNotFound = errors.New("voluntary donation not found")
	ErrDonationExists    = errors.New("donor already has an active donation for this request")
)

type RequestRepository interface {
	// Blood request operations
	CreateRequest(db *gorm.DB, request *models.BloodRequest) error
	FindRequestByID(db *gorm.DB, id uint) (*models.BloodRequest, error)
	UpdateRequestStatus(db *gorm.DB, id uint, status models.RequestStatus, notes string) error
	RequestParticipantIDs(db *gorm.DB, request *models.BloodRequest) ([]uint, error)

	// Donation operations
	CreateDonation(db *gorm.DB, donation *models.Donation) error
	FindDonationByID(db *gorm.DB, id uint) (*models.Donation, error)
	FindActiveDonation(db *gorm.DB, donorProfileID, requestID uint) (*models.Donation, error)
	UpdateDonation(db *gorm.DB, id uint, fields map[string]interface{}) error
	CountCompletedDonations(db *gorm.DB, requestID uint) (int64, error)

	// Voluntary donation operations
	CreateVoluntary(db *gorm.DB, v *models.VoluntaryDonation) error
	FindVoluntaryByID(db *gorm.DB, id uint) (*models.VoluntaryDonation, error)
	UpdateVoluntary(db *gorm.DB, id uint, fields map[string]interface{}) error
}

type RequestRepositoryImpl struct{}

func NewRequestRepository() RequestRepository {
	return &RequestRepositoryImpl{}
}

// Blood request operations

func (r *RequestRepositoryImpl) CreateRequest(db *gorm.DB, request *models.BloodRequest) error {
	return db.Create(request).Error
}

func (r *RequestRepositoryImpl) FindRequestByID(db *gorm.DB, id uint) (*models.BloodRequest, error) {
	var request models.BloodRequest
	err := db.Preload("Hospital").First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepositoryImpl) UpdateRequestStatus(db *gorm.DB, id uint, status models.RequestStatus, notes string) error {
	fields := map[string]interface{}{"status": status}
	if notes != "" {
		fields["admin_notes"] = notes
	}
	result := db.Model(&models.BloodRequest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// RequestParticipantIDs: автор заявки, аккаунт больницы и доноры с неотмененными донациями
func (r *RequestRepositoryImpl) RequestParticipantIDs(db *gorm.DB, request *models.BloodRequest) ([]uint, error) {
	ids := []uint{request.RequesterID}

	if request.HospitalID != nil {
		var hospitalUserIDs []uint
		err := db.Model(&models.Hospital{}).Where("id = ?", *request.HospitalID).Pluck("user_id", &hospitalUserIDs).Error
		if err != nil {
			return nil, err
		}
		ids = append(ids, hospitalUserIDs...)
	}

	var donorUserIDs []uint
	err := db.Model(&models.Donation{}).
		Joins("JOIN donor_profiles ON donor_profiles.id = donations.donor_id").
		Where("donations.request_id = ? AND donations.status <> ?", request.ID, models.DonationStatusCancelled).
		Distinct().
		Pluck("donor_profiles.user_id", &donorUserIDs).Error
	if err != nil {
		return nil, err
	}

	return append(ids, donorUserIDs...), nil
}

// Donation operations

func (r *RequestRepositoryImpl) CreateDonation(db *gorm.DB, donation *models.Donation) error {
	if _, err := r.FindActiveDonation(db, donation.DonorID, donation.RequestID); err == nil {
		return ErrDonationExists
	} else if !errors.Is(err, ErrDonationNotFound) {
		return err
	}
	return db.Create(donation).Error
}

func (r *RequestRepositoryImpl) FindDonationByID(db *gorm.DB, id uint) (*models.Donation, error) {
	var donation models.Donation
	err := db.Preload("Donor").First(&donation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &donation, nil
}

func (r *RequestRepositoryImpl) FindActiveDonation(db *gorm.DB, donorProfileID, requestID uint) (*models.Donation, error) {
	var donation models.Donation
	err := db.Where("donor_id = ? AND request_id = ? AND status <> ?", donorProfileID, requestID, models.DonationStatusCancelled).
		First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &donation, nil
}

func (r *RequestRepositoryImpl) UpdateDonation(db *gorm.DB, id uint, fields map[string]interface{}) error {
	result := db.Model(&models.Donation{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDonationNotFound
	}
	return nil
}

func (r *RequestRepositoryImpl) CountCompletedDonations(db *gorm.DB, requestID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Donation{}).
		Where("request_id = ? AND status = ?", requestID, models.DonationStatusCompleted).
		Count(&count).Error
	return count, err
}

// Voluntary donation operations

func (r *RequestRepositoryImpl) CreateVoluntary(db *gorm.DB, v *models.VoluntaryDonation) error {
	return db.Create(v).Error
}

func (r *RequestRepositoryImpl) FindVoluntaryByID(db *gorm.DB, id uint) (*models.VoluntaryDonation, error) {
	var v models.VoluntaryDonation
	err := db.First(&v, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoluntaryNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *RequestRepositoryImpl) UpdateVoluntary(db *gorm.DB, id uint, fields map[string]interface{}) error {
	result := db.Model(&models.VoluntaryDonation{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoluntaryNotFound
	}
	return nil
}
