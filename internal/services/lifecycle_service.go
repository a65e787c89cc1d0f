package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"blooddonation_backend/internal/algorithms"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Actor - кто выполняет действие (из токена и БД)
type Actor struct {
	ID   uint
	Role models.UserRole
}

// LifecycleService - переходы состояний заявок, донаций и добровольных сдач.
// Каждое действие - своя транзакция, уведомления отправляются после коммита.
type LifecycleService interface {
	// Users
	ApproveUser(ctx context.Context, db *gorm.DB, userID uint) (*models.User, error)
	RejectUser(ctx context.Context, db *gorm.DB, userID uint, reason string) (*models.User, error)
	RestoreEligibility(ctx context.Context, db *gorm.DB, donorUserID uint) error

	// Requests
	CreateRequest(ctx context.Context, db *gorm.DB, actor Actor, req *dto.CreateRequestRequest) (*models.BloodRequest, error)
	ApproveRequest(ctx context.Context, db *gorm.DB, requestID uint) (*models.BloodRequest, error)
	RejectRequest(ctx context.Context, db *gorm.DB, requestID uint, reason string) (*models.BloodRequest, error)
	CancelRequest(ctx context.Context, db *gorm.DB, actor Actor, requestID uint) (*models.BloodRequest, error)
	ExpireRequest(ctx context.Context, db *gorm.DB, requestID uint) (*models.BloodRequest, error)
	GetRequest(db *gorm.DB, requestID uint) (*models.BloodRequest, error)

	// Donations
	AcceptRequest(ctx context.Context, db *gorm.DB, donorUserID, requestID uint) (*models.Donation, error)
	UpdateDonationStatus(ctx context.Context, db *gorm.DB, actor Actor, donationID uint, status models.DonationStatus) (*models.Donation, error)

	// Voluntary donations
	SubmitVoluntary(ctx context.Context, db *gorm.DB, donorUserID uint, req *dto.SubmitVoluntaryRequest) (*models.VoluntaryDonation, error)
	ApproveVoluntary(ctx context.Context, db *gorm.DB, id uint) (*models.VoluntaryDonation, error)
	RejectVoluntary(ctx context.Context, db *gorm.DB, id uint, reason string) (*models.VoluntaryDonation, error)
	AssignVoluntaryHospital(ctx context.Context, db *gorm.DB, id, hospitalUserID uint) (*models.VoluntaryDonation, error)
	ScheduleVoluntary(ctx context.Context, db *gorm.DB, id uint, at time.Time) (*models.VoluntaryDonation, error)
	RemindVoluntary(ctx context.Context, db *gorm.DB, id uint) (*models.VoluntaryDonation, error)
}

type lifecycleService struct {
	userRepo            repositories.UserRepository
	requestRepo         repositories.RequestRepository
	notificationService NotificationService
	now                 func() time.Time
}

func NewLifecycleService(
	userRepo repositories.UserRepository,
	requestRepo repositories.RequestRepository,
	notificationService NotificationService,
) LifecycleService {
	return &lifecycleService{
		userRepo:            userRepo,
		requestRepo:         requestRepo,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// ============================================
// Users
// ============================================

func (s *lifecycleService) ApproveUser(ctx context.Context, db *gorm.DB, userID uint) (*models.User, error) {
	user, err := s.setUserStatus(db, userID, models.UserStatusApproved)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case models.UserRoleDonor:
		s.notificationService.NotifyDonorApproved(ctx, db, user.ID)
	case models.UserRoleHospital:
		s.notificationService.NotifyHospitalApproved(ctx, db, user.ID)
	}
	return user, nil
}

func (s *lifecycleService) RejectUser(ctx context.Context, db *gorm.DB, userID uint, reason string) (*models.User, error) {
	user, err := s.setUserStatus(db, userID, models.UserStatusRejected)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case models.UserRoleDonor:
		s.notificationService.NotifyDonorRejected(ctx, db, user.ID, reason)
	case models.UserRoleHospital:
		s.notificationService.NotifyHospitalRejected(ctx, db, user.ID, reason)
	}
	return user, nil
}

func (s *lifecycleService) setUserStatus(db *gorm.DB, userID uint, status models.UserStatus) (*models.User, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	user, err := s.userRepo.FindByID(tx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	if user.Role == models.UserRoleAdmin {
		return nil, apperrors.ErrInvalidOperation("user", "Administrator accounts cannot be moderated")
	}
	if user.Status != models.UserStatusPending {
		return nil, apperrors.ErrInvalidStatus("user", "Only pending accounts can be moderated")
	}
	if err := s.userRepo.UpdateStatus(tx, userID, status); err != nil {
		return nil, mapUserError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	user.Status = status
	return user, nil
}

// RestoreEligibility снимает ожидание после сдачи крови
func (s *lifecycleService) RestoreEligibility(ctx context.Context, db *gorm.DB, donorUserID uint) error {
	profile, err := s.userRepo.FindDonorProfileByUserID(db, donorUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrDonorProfileNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	err = db.Model(&models.DonorProfile{}).Where("id = ?", profile.ID).
		Updates(map[string]interface{}{"next_eligible_date": nil, "is_available": true}).Error
	if err != nil {
		return apperrors.InternalError(err)
	}

	s.notificationService.NotifyDonorEligibilityRestored(ctx, db, donorUserID)
	return nil
}

// ============================================
// Requests
// ============================================

func (s *lifecycleService) CreateRequest(ctx context.Context, db *gorm.DB, actor Actor, req *dto.CreateRequestRequest) (*models.BloodRequest, error) {
	if actor.Role != models.UserRoleSeeker && actor.Role != models.UserRoleHospital {
		return nil, apperrors.ErrInsufficientPermissions
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	requester, err := s.userRepo.FindByID(tx, actor.ID)
	if err != nil {
		return nil, mapUserError(err)
	}

	request := &models.BloodRequest{
		RequesterID:   actor.ID,
		RequesterRole: actor.Role,
		PatientName:   strings.TrimSpace(req.PatientName),
		BloodType:     req.BloodType,
		UnitsNeeded:   req.UnitsNeeded,
		Urgency:       urgency,
		City:          strings.TrimSpace(req.City),
		Status:        models.RequestStatusPending,
	}

	requesterName := requester.Name
	if actor.Role == models.UserRoleHospital {
		hospital, err := s.userRepo.FindHospitalByUserID(tx, actor.ID)
		if err != nil {
			return nil, mapHospitalError(err)
		}
		request.HospitalID = &hospital.ID
		requesterName = hospital.Name
	} else if req.HospitalID != nil {
		if _, err := s.userRepo.FindHospitalByID(tx, *req.HospitalID); err != nil {
			return nil, mapHospitalError(err)
		}
		request.HospitalID = req.HospitalID
	}

	if err := s.requestRepo.CreateRequest(tx, request); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "blood request created", "request_id", request.ID, "urgency", request.Urgency)

	if actor.Role == models.UserRoleHospital {
		s.notificationService.NotifyAdminsNewHospitalRequest(ctx, db, request, requesterName)
	} else {
		s.notificationService.NotifyAdminsNewSeekerRequest(ctx, db, request, requesterName)
		s.notificationService.NotifySeekerRequestSubmitted(ctx, db, request)
	}
	return request, nil
}

func (s *lifecycleService) GetRequest(db *gorm.DB, requestID uint) (*models.BloodRequest, error) {
	request, err := s.requestRepo.FindRequestByID(db, requestID)
	if err != nil {
		return nil, mapRequestError(err)
	}
	return request, nil
}

// transitionRequest меняет статус, если check пропускает текущую заявку
func (s *lifecycleService) transitionRequest(db *gorm.DB, requestID uint, to models.RequestStatus, notes string, check func(*models.BloodRequest) error) (*models.BloodRequest, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	request, err := s.requestRepo.FindRequestByID(tx, requestID)
	if err != nil {
		return nil, mapRequestError(err)
	}
	if err := check(request); err != nil {
		return nil, err
	}
	if err := s.requestRepo.UpdateRequestStatus(tx, requestID, to, notes); err != nil {
		return nil, mapRequestError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	request.Status = to
	if notes != "" {
		request.AdminNotes = notes
	}
	return request, nil
}

func requireRequestStatus(allowed ...models.RequestStatus) func(*models.BloodRequest) error {
	return func(r *models.BloodRequest) error {
		for _, st := range allowed {
			if r.Status == st {
				return nil
			}
		}
		return apperrors.ErrInvalidStatus("request", "Blood request is "+string(r.Status))
	}
}

func (s *lifecycleService) ApproveRequest(ctx context.Context, db *gorm.DB, requestID uint) (*models.BloodRequest, error) {
	request, err := s.transitionRequest(db, requestID, models.RequestStatusApproved, "",
		requireRequestStatus(models.RequestStatusPending))
	if err != nil {
		return nil, err
	}

	s.notifyRequester(request,
		func() { s.notificationService.NotifyHospitalRequestApproved(ctx, db, request.RequesterID, request) },
		func() { s.notificationService.NotifySeekerRequestApproved(ctx, db, request) },
	)
	if request.Urgency == models.UrgencyEmergency {
		s.notificationService.NotifyEmergencyMatchingDonors(ctx, db, request)
	} else {
		s.notificationService.NotifyMatchingDonors(ctx, db, request)
	}
	return request, nil
}

func (s *lifecycleService) RejectRequest(ctx context.Context, db *gorm.DB, requestID uint, reason string) (*models.BloodRequest, error) {
	request, err := s.transitionRequest(db, requestID, models.RequestStatusRejected, reason,
		requireRequestStatus(models.RequestStatusPending, models.RequestStatusApproved))
	if err != nil {
		return nil, err
	}

	s.notifyRequester(request,
		func() {
			s.notificationService.NotifyHospitalRequestRejected(ctx, db, request.RequesterID, request, reason)
		},
		func() { s.notificationService.NotifySeekerRequestRejected(ctx, db, request, reason) },
	)
	return request, nil
}

func (s *lifecycleService) CancelRequest(ctx context.Context, db *gorm.DB, actor Actor, requestID uint) (*models.BloodRequest, error) {
	request, err := s.transitionRequest(db, requestID, models.RequestStatusCancelled, "", func(r *models.BloodRequest) error {
		if r.RequesterID != actor.ID && actor.Role != models.UserRoleAdmin {
			return apperrors.ErrInsufficientPermissions
		}
		if r.Status.IsTerminal() {
			return apperrors.ErrInvalidStatus("request", "Blood request is already closed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "blood request cancelled", "request_id", request.ID)
	return request, nil
}

// ExpireRequest закрывает просроченную заявку (статус cancelled с пометкой)
func (s *lifecycleService) ExpireRequest(ctx context.Context, db *gorm.DB, requestID uint) (*models.BloodRequest, error) {
	request, err := s.transitionRequest(db, requestID, models.RequestStatusCancelled, "expired",
		requireRequestStatus(models.RequestStatusPending, models.RequestStatusApproved))
	if err != nil {
		return nil, err
	}
	s.notificationService.NotifySeekerRequestExpired(ctx, db, request)
	return request, nil
}

func (s *lifecycleService) notifyRequester(request *models.BloodRequest, hospital, seeker func()) {
	switch request.RequesterRole {
	case models.UserRoleHospital:
		hospital()
	case models.UserRoleSeeker:
		seeker()
	}
}

// ============================================
// Donations
// ============================================

func (s *lifecycleService) AcceptRequest(ctx context.Context, db *gorm.DB, donorUserID, requestID uint) (*models.Donation, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	donor, err := s.userRepo.FindByID(tx, donorUserID)
	if err != nil {
		return nil, mapUserError(err)
	}
	profile, err := s.userRepo.FindDonorProfileByUserID(tx, donorUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrDonorProfileNotFound) {
			return nil, apperrors.ErrInvalidOperation("donation", "Donor profile is missing")
		}
		return nil, apperrors.InternalError(err)
	}

	request, err := s.requestRepo.FindRequestByID(tx, requestID)
	if err != nil {
		return nil, mapRequestError(err)
	}
	if request.Status != models.RequestStatusApproved && request.Status != models.RequestStatusInProgress {
		return nil, apperrors.ErrInvalidStatus("request", "Blood request is not open for donors")
	}
	if profile.BloodType != request.BloodType {
		return nil, apperrors.ErrInvalidOperation("donation", "Blood type does not match the request")
	}
	if profile.NextEligibleDate != nil && profile.NextEligibleDate.After(s.now()) {
		return nil, apperrors.ErrInvalidOperation("donation", "Donor is not eligible to donate yet")
	}

	donation := &models.Donation{
		DonorID:   profile.ID,
		RequestID: request.ID,
		Status:    models.DonationStatusAccepted,
	}
	if err := s.requestRepo.CreateDonation(tx, donation); err != nil {
		if errors.Is(err, repositories.ErrDonationExists) {
			return nil, apperrors.ErrConflict(err, "donation", "You have already accepted this request")
		}
		return nil, apperrors.InternalError(err)
	}
	if request.Status == models.RequestStatusApproved {
		if err := s.requestRepo.UpdateRequestStatus(tx, request.ID, models.RequestStatusInProgress, ""); err != nil {
			return nil, apperrors.InternalError(err)
		}
		request.Status = models.RequestStatusInProgress
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "donation accepted", "donation_id", donation.ID, "request_id", request.ID)

	s.notificationService.NotifyDonorDonationAccepted(ctx, db, donor.ID, donation, request)
	if hospitalUserID := requestHospitalUserID(request); hospitalUserID != 0 {
		s.notificationService.NotifyHospitalDonorAccepted(ctx, db, hospitalUserID, donation, donor.Name)
	}
	s.notificationService.NotifySeekerDonorFound(ctx, db, request, donor.Name)
	return donation, nil
}

var donationStep = map[models.DonationStatus]int{
	models.DonationStatusAccepted:  0,
	models.DonationStatusOnTheWay:  1,
	models.DonationStatusReached:   2,
	models.DonationStatusCompleted: 3,
}

// canMoveDonation: только вперед по цепочке или отмена незавершенной
func canMoveDonation(from, to models.DonationStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == models.DonationStatusCancelled {
		return true
	}
	next, ok := donationStep[to]
	return ok && next > donationStep[from]
}

func (s *lifecycleService) UpdateDonationStatus(ctx context.Context, db *gorm.DB, actor Actor, donationID uint, status models.DonationStatus) (*models.Donation, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	donation, err := s.requestRepo.FindDonationByID(tx, donationID)
	if err != nil {
		if errors.Is(err, repositories.ErrDonationNotFound) {
			return nil, apperrors.ErrDonationNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	request, err := s.requestRepo.FindRequestByID(tx, donation.RequestID)
	if err != nil {
		return nil, mapRequestError(err)
	}
	if donation.Donor == nil {
		return nil, apperrors.InternalError(repositories.ErrDonorProfileNotFound)
	}

	hospitalUserID := requestHospitalUserID(request)
	switch {
	case actor.Role == models.UserRoleAdmin:
	case actor.ID == donation.Donor.UserID:
	case actor.Role == models.UserRoleHospital && actor.ID == hospitalUserID:
	default:
		return nil, apperrors.ErrInsufficientPermissions
	}

	if !canMoveDonation(donation.Status, status) {
		return nil, apperrors.ErrInvalidStatus("donation", "Cannot change donation from "+string(donation.Status)+" to "+string(status))
	}

	now := s.now()
	fields := map[string]interface{}{"status": status}
	if status == models.DonationStatusCompleted {
		fields["completed_at"] = now
		donation.CompletedAt = &now
	}
	if err := s.requestRepo.UpdateDonation(tx, donation.ID, fields); err != nil {
		return nil, apperrors.InternalError(err)
	}
	donation.Status = status

	totalDonations := 0
	fulfilled := false
	if status == models.DonationStatusCompleted {
		err := s.userRepo.RecordCompletedDonation(tx, donation.DonorID, map[string]interface{}{
			"last_donation_date": now,
			"next_eligible_date": algorithms.NextEligibleDate(now),
		})
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		totalDonations = donation.Donor.TotalDonations + 1

		completed, err := s.requestRepo.CountCompletedDonations(tx, request.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if completed >= int64(request.UnitsNeeded) && !request.Status.IsTerminal() {
			if err := s.requestRepo.UpdateRequestStatus(tx, request.ID, models.RequestStatusCompleted, ""); err != nil {
				return nil, apperrors.InternalError(err)
			}
			request.Status = models.RequestStatusCompleted
			fulfilled = true
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "donation status changed", "donation_id", donation.ID, "status", status)

	donorName := ""
	if donor, err := s.userRepo.FindByID(db, donation.Donor.UserID); err == nil {
		donorName = donor.Name
	}

	switch status {
	case models.DonationStatusOnTheWay:
		if hospitalUserID != 0 {
			s.notificationService.NotifyHospitalDonorOnTheWay(ctx, db, hospitalUserID, donation, donorName)
		}
		s.notificationService.NotifySeekerDonorOnTheWay(ctx, db, request, donorName)

	case models.DonationStatusReached:
		if hospitalUserID != 0 {
			s.notificationService.NotifyHospitalDonorReached(ctx, db, hospitalUserID, donation, donorName)
		}

	case models.DonationStatusCompleted:
		s.notificationService.NotifyDonorDonationCompleted(ctx, db, donation.Donor.UserID, donation)
		if IsMilestone(totalDonations) {
			s.notificationService.NotifyDonorMilestone(ctx, db, donation.Donor.UserID, totalDonations)
		}
		s.notificationService.NotifyAdminsDonationCompleted(ctx, db, donation, donorName)
		s.notificationService.NotifySeekerDonationCompleted(ctx, db, request, donorName)
		if fulfilled {
			if hospitalUserID != 0 {
				s.notificationService.NotifyHospitalRequestFulfilled(ctx, db, hospitalUserID, request)
			}
			s.notificationService.NotifySeekerRequestFulfilled(ctx, db, request)
		}

	case models.DonationStatusCancelled:
		if hospitalUserID != 0 {
			s.notificationService.NotifyHospitalDonorCancelled(ctx, db, hospitalUserID, donation, donorName)
		}
		s.notificationService.NotifyAdminsDonationCancelled(ctx, db, donation, donorName)
	}

	return donation, nil
}

func requestHospitalUserID(request *models.BloodRequest) uint {
	if request.Hospital != nil {
		return request.Hospital.UserID
	}
	return 0
}

// ============================================
// Voluntary donations
// ============================================

func (s *lifecycleService) SubmitVoluntary(ctx context.Context, db *gorm.DB, donorUserID uint, req *dto.SubmitVoluntaryRequest) (*models.VoluntaryDonation, error) {
	donor, err := s.userRepo.FindByID(db, donorUserID)
	if err != nil {
		return nil, mapUserError(err)
	}
	profile, err := s.userRepo.FindDonorProfileByUserID(db, donorUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrDonorProfileNotFound) {
			return nil, apperrors.ErrInvalidOperation("voluntary_donation", "Donor profile is missing")
		}
		return nil, apperrors.InternalError(err)
	}

	v := &models.VoluntaryDonation{
		DonorUserID:   donorUserID,
		BloodType:     profile.BloodType,
		City:          profile.City,
		PreferredDate: req.PreferredDate,
		Status:        models.VoluntaryStatusPending,
	}
	if req.BloodType != "" {
		v.BloodType = req.BloodType
	}
	if c := strings.TrimSpace(req.City); c != "" {
		v.City = c
	}

	if err := s.requestRepo.CreateVoluntary(db, v); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.notificationService.NotifyAdminsVoluntarySubmitted(ctx, db, v, donor.Name)
	return v, nil
}

// transitionVoluntary - общий каркас: загрузка, проверка, обновление полей
func (s *lifecycleService) transitionVoluntary(db *gorm.DB, id uint, apply func(tx *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error)) (*models.VoluntaryDonation, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	v, err := s.requestRepo.FindVoluntaryByID(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrVoluntaryNotFound) {
			return nil, apperrors.ErrVoluntaryNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	fields, err := apply(tx, v)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.requestRepo.UpdateVoluntary(tx, id, fields); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	return v, nil
}

func voluntaryStatusIn(v *models.VoluntaryDonation, allowed ...models.VoluntaryStatus) error {
	for _, st := range allowed {
		if v.Status == st {
			return nil
		}
	}
	return apperrors.ErrInvalidStatus("voluntary_donation", "Voluntary donation is "+string(v.Status))
}

func (s *lifecycleService) ApproveVoluntary(ctx context.Context, db *gorm.DB, id uint) (*models.VoluntaryDonation, error) {
	v, err := s.transitionVoluntary(db, id, func(_ *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error) {
		if err := voluntaryStatusIn(v, models.VoluntaryStatusPending); err != nil {
			return nil, err
		}
		v.Status = models.VoluntaryStatusApproved
		return map[string]interface{}{"status": v.Status}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notificationService.NotifyDonorVoluntaryApproved(ctx, db, v)
	return v, nil
}

func (s *lifecycleService) RejectVoluntary(ctx context.Context, db *gorm.DB, id uint, reason string) (*models.VoluntaryDonation, error) {
	v, err := s.transitionVoluntary(db, id, func(_ *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error) {
		if err := voluntaryStatusIn(v, models.VoluntaryStatusPending, models.VoluntaryStatusApproved); err != nil {
			return nil, err
		}
		v.Status = models.VoluntaryStatusRejected
		v.AdminNotes = reason
		return map[string]interface{}{"status": v.Status, "admin_notes": reason}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notificationService.NotifyDonorVoluntaryRejected(ctx, db, v, reason)
	return v, nil
}

func (s *lifecycleService) AssignVoluntaryHospital(ctx context.Context, db *gorm.DB, id, hospitalUserID uint) (*models.VoluntaryDonation, error) {
	var hospitalName string
	v, err := s.transitionVoluntary(db, id, func(tx *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error) {
		if err := voluntaryStatusIn(v, models.VoluntaryStatusApproved, models.VoluntaryStatusScheduled); err != nil {
			return nil, err
		}
		user, err := s.userRepo.FindByID(tx, hospitalUserID)
		if err != nil {
			return nil, mapUserError(err)
		}
		if user.Role != models.UserRoleHospital || !user.IsApproved() {
			return nil, apperrors.ErrInvalidOperation("voluntary_donation", "Assigned user must be an approved hospital")
		}
		hospitalName = user.Name
		if hospital, err := s.userRepo.FindHospitalByUserID(tx, hospitalUserID); err == nil {
			hospitalName = hospital.Name
		}
		v.HospitalUserID = &hospitalUserID
		return map[string]interface{}{"hospital_user_id": hospitalUserID}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.NotifyDonorHospitalAssigned(ctx, db, v, hospitalName)
	s.notificationService.NotifyHospitalVoluntaryAssigned(ctx, db, v, s.userName(db, v.DonorUserID))
	return v, nil
}

func (s *lifecycleService) ScheduleVoluntary(ctx context.Context, db *gorm.DB, id uint, at time.Time) (*models.VoluntaryDonation, error) {
	v, err := s.transitionVoluntary(db, id, func(_ *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error) {
		if err := voluntaryStatusIn(v, models.VoluntaryStatusApproved, models.VoluntaryStatusScheduled); err != nil {
			return nil, err
		}
		if v.HospitalUserID == nil {
			return nil, apperrors.ErrInvalidOperation("voluntary_donation", "Assign a hospital before scheduling")
		}
		v.Status = models.VoluntaryStatusScheduled
		v.ScheduledAt = &at
		return map[string]interface{}{"status": v.Status, "scheduled_at": at}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notificationService.NotifyDonorAppointmentScheduled(ctx, db, v.DonorUserID, v)
	return v, nil
}

func (s *lifecycleService) RemindVoluntary(ctx context.Context, db *gorm.DB, id uint) (*models.VoluntaryDonation, error) {
	v, err := s.transitionVoluntary(db, id, func(_ *gorm.DB, v *models.VoluntaryDonation) (map[string]interface{}, error) {
		return nil, voluntaryStatusIn(v, models.VoluntaryStatusScheduled)
	})
	if err != nil {
		return nil, err
	}
	s.notificationService.NotifyDonorAppointmentReminder(ctx, db, v.DonorUserID, v)
	s.notificationService.NotifyHospitalVoluntaryReady(ctx, db, v, s.userName(db, v.DonorUserID))
	return v, nil
}

func (s *lifecycleService) userName(db *gorm.DB, id uint) string {
	if u, err := s.userRepo.FindByID(db, id); err == nil {
		return u.Name
	}
	return ""
}

// ============================================
// Error mapping
// ============================================

func mapUserError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	return apperrors.InternalError(err)
}

func mapHospitalError(err error) error {
	if errors.Is(err, repositories.ErrHospitalNotFound) {
		return apperrors.ErrInvalidOperation("request", "Hospital not found")
	}
	return apperrors.InternalError(err)
}

func mapRequestError(err error) error {
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return apperrors.ErrRequestNotFound
	}
	return apperrors.InternalError(err)
}
