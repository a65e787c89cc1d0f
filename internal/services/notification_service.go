package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blooddonation_backend/internal/algorithms"
	"blooddonation_backend/internal/email"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/models/chat"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/internal/workers"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/ws"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RealtimePusher - доставка событий онлайн-пользователям (ws.WebSocketManager)
type RealtimePusher interface {
	PushToUser(userID uint, eventType string, data any)
}

// Типы уведомлений
const (
	TypeNewRegistration   = "new_registration"
	TypeNewRequest        = "new_request"
	TypeEmergencyRequest  = "emergency_request"
	TypeVoluntary         = "voluntary_donation"
	TypeDonationCompleted = "donation_completed"
	TypeDonationCancelled = "donation_cancelled"
	TypeAccountApproved   = "account_approved"
	TypeAccountRejected   = "account_rejected"
	TypeMatchingRequest   = "matching_request"
	TypeEmergencyMatch    = "emergency_match"
	TypeDonationAccepted  = "donation_accepted"
	TypeAppointment       = "appointment"
	TypeReminder          = "reminder"
	TypeHospitalAssigned  = "hospital_assigned"
	TypeEligibility       = "eligibility_restored"
	TypeAchievement       = "achievement"
	TypeRequestStatus     = "request_status"
	TypeDonorUpdate       = "donor_update"
	TypeRequestFulfilled  = "request_fulfilled"
	TypeRequestExpired    = "request_expired"
	TypeChatMessage       = "chat_message"
	TypeAnnouncement      = "announcement"
)

const (
	relatedRequest   = "request"
	relatedDonation  = "donation"
	relatedVoluntary = "voluntary_donation"
	relatedUser      = "user"
	relatedMessage   = "chat_message"

	chatPreviewLength = 100
)

type NotificationService interface {
	// Inbox
	GetUserNotifications(db *gorm.DB, userID uint, query dto.NotificationListQuery, page, pageSize int) (*dto.NotificationListResponse, error)
	GetUnreadCount(db *gorm.DB, userID uint) (int64, error)
	MarkAsRead(db *gorm.DB, userID, notificationID uint) error
	MarkAllAsRead(db *gorm.DB, userID uint) (int64, error)

	// Admin events
	NotifyAdminsNewHospital(ctx context.Context, db *gorm.DB, user *models.User)
	NotifyAdminsNewDonor(ctx context.Context, db *gorm.DB, user *models.User)
	NotifyAdminsNewSeeker(ctx context.Context, db *gorm.DB, user *models.User)
	NotifyAdminsNewHospitalRequest(ctx context.Context, db *gorm.DB, request *models.BloodRequest, hospitalName string)
	NotifyAdminsNewSeekerRequest(ctx context.Context, db *gorm.DB, request *models.BloodRequest, seekerName string)
	NotifyAdminsVoluntarySubmitted(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string)
	NotifyAdminsDonationCompleted(ctx context.Context, db *gorm.DB, donation *models.Donation, donorName string)
	NotifyAdminsDonationCancelled(ctx context.Context, db *gorm.DB, donation *models.Donation, donorName string)

	// Donor events
	NotifyDonorApproved(ctx context.Context, db *gorm.DB, donorUserID uint)
	NotifyDonorRejected(ctx context.Context, db *gorm.DB, donorUserID uint, reason string)
	NotifyMatchingDonors(ctx context.Context, db *gorm.DB, request *models.BloodRequest)
	NotifyEmergencyMatchingDonors(ctx context.Context, db *gorm.DB, request *models.BloodRequest)
	NotifyDonorDonationAccepted(ctx context.Context, db *gorm.DB, donorUserID uint, donation *models.Donation, request *models.BloodRequest)
	NotifyDonorAppointmentScheduled(ctx context.Context, db *gorm.DB, donorUserID uint, v *models.VoluntaryDonation)
	NotifyDonorAppointmentReminder(ctx context.Context, db *gorm.DB, donorUserID uint, v *models.VoluntaryDonation)
	NotifyDonorDonationCompleted(ctx context.Context, db *gorm.DB, donorUserID uint, donation *models.Donation)
	NotifyDonorVoluntaryApproved(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation)
	NotifyDonorVoluntaryRejected(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, reason string)
	NotifyDonorHospitalAssigned(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, hospitalName string)
	NotifyDonorEligibilityRestored(ctx context.Context, db *gorm.DB, donorUserID uint)
	NotifyDonorMilestone(ctx context.Context, db *gorm.DB, donorUserID uint, totalDonations int)

	// Hospital events
	NotifyHospitalApproved(ctx context.Context, db *gorm.DB, hospitalUserID uint)
	NotifyHospitalRejected(ctx context.Context, db *gorm.DB, hospitalUserID uint, reason string)
	NotifyHospitalRequestApproved(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest)
	NotifyHospitalRequestRejected(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest, reason string)
	NotifyHospitalDonorAccepted(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string)
	NotifyHospitalDonorOnTheWay(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string)
	NotifyHospitalDonorReached(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string)
	NotifyHospitalDonorCancelled(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string)
	NotifyHospitalRequestFulfilled(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest)
	NotifyHospitalVoluntaryAssigned(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string)
	NotifyHospitalVoluntaryReady(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string)

	// Seeker events
	NotifySeekerRequestSubmitted(ctx context.Context, db *gorm.DB, request *models.BloodRequest)
	NotifySeekerRequestApproved(ctx context.Context, db *gorm.DB, request *models.BloodRequest)
	NotifySeekerRequestRejected(ctx context.Context, db *gorm.DB, request *models.BloodRequest, reason string)
	NotifySeekerDonorFound(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string)
	NotifySeekerDonorOnTheWay(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string)
	NotifySeekerDonationCompleted(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string)
	NotifySeekerRequestFulfilled(ctx context.Context, db *gorm.DB, request *models.BloodRequest)
	NotifySeekerRequestExpired(ctx context.Context, db *gorm.DB, request *models.BloodRequest)

	// Chat: всегда синхронно и внутри транзакции отправки
	NotifyNewMessage(db *gorm.DB, sender *models.User, message *chat.Message) (*models.Notification, error)

	// Announcements
	PublishAnnouncement(ctx context.Context, db *gorm.DB, adminID uint, req *dto.CreateAnnouncementRequest) (*models.Announcement, error)

	// Push отправляет уже сохраненное уведомление в ws
	Push(n *models.Notification)
}

// notice - одно событие до сохранения
type notice struct {
	title       string
	message     string
	typ         string
	relatedType string
	relatedID   uint
	data        map[string]any
	// email - дублировать письмом (экстренные рассылки)
	email bool
}

// recipientsFunc вычисляется при доставке (в фоне - уже вне запроса)
type recipientsFunc func(db *gorm.DB) ([]uint, error)

type NotificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	worker           *workers.NotificationWorker
	pusher           RealtimePusher
	emailProvider    email.Provider
	now              func() time.Time
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	worker *workers.NotificationWorker,
	pusher RealtimePusher,
	emailProvider email.Provider,
) NotificationService {
	return &NotificationServiceImpl{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		worker:           worker,
		pusher:           pusher,
		emailProvider:    emailProvider,
		now:              time.Now,
	}
}

// ============================================
// Inbox
// ============================================

func (s *NotificationServiceImpl) GetUserNotifications(db *gorm.DB, userID uint, query dto.NotificationListQuery, page, pageSize int) (*dto.NotificationListResponse, error) {
	notifications, total, err := s.notificationRepo.FindUserNotifications(db, userID, repositories.NotificationCriteria{
		UnreadOnly: query.UnreadOnly,
		Type:       query.Type,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	unread, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &dto.NotificationListResponse{
		Success:       true,
		Notifications: notifications,
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationServiceImpl) GetUnreadCount(db *gorm.DB, userID uint) (int64, error) {
	count, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return count, nil
}

func (s *NotificationServiceImpl) MarkAsRead(db *gorm.DB, userID, notificationID uint) error {
	if err := s.notificationRepo.MarkAsRead(db, notificationID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *NotificationServiceImpl) MarkAllAsRead(db *gorm.DB, userID uint) (int64, error) {
	count, err := s.notificationRepo.MarkAllAsRead(db, userID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return count, nil
}

// ============================================
// Доставка
// ============================================

func toUser(id uint) recipientsFunc {
	return func(*gorm.DB) ([]uint, error) {
		if id == 0 {
			return nil, nil
		}
		return []uint{id}, nil
	}
}

func (s *NotificationServiceImpl) admins() recipientsFunc {
	return func(db *gorm.DB) ([]uint, error) {
		return s.userRepo.FindApprovedIDsByRoles(db, models.UserRoleAdmin)
	}
}

// matchingDonors - одобренные доноры с подходящей группой крови, городом и сроком
func (s *NotificationServiceImpl) matchingDonors(request *models.BloodRequest) recipientsFunc {
	criteria := algorithms.CriteriaFromRequest(request)
	return func(db *gorm.DB) ([]uint, error) {
		profiles, err := s.userRepo.FindApprovedDonorProfiles(db)
		if err != nil {
			return nil, err
		}
		return algorithms.MatchDonors(profiles, criteria, s.now()), nil
	}
}

// dispatch сохраняет уведомление для всех получателей. Ошибки не возвращаются:
// уведомление никогда не откатывает действие, которое его вызвало.
func (s *NotificationServiceImpl) dispatch(ctx context.Context, db *gorm.DB, event string, recipients recipientsFunc, n notice) {
	run := func(ctx context.Context) error {
		_, err := s.deliver(db.WithContext(ctx), event, recipients, n)
		return err
	}

	if s.worker != nil {
		if !s.worker.Enqueue(workers.Task{Event: event, Run: run}) {
			logger.CtxWarn(ctx, "notification queue full, event dropped", "event", event)
		}
		return
	}

	if err := run(context.WithoutCancel(ctx)); err != nil {
		logger.CtxWarn(ctx, "notification delivery failed", "event", event, "error", err.Error())
	}
}

func (s *NotificationServiceImpl) deliver(db *gorm.DB, event string, recipients recipientsFunc, n notice) (int, error) {
	ids, err := recipients(db)
	if err != nil {
		logger.NotificationLog(event, 0, err)
		return 0, err
	}
	if len(ids) == 0 {
		logger.NotificationLog(event, 0, nil)
		return 0, nil
	}

	rows := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		row, err := n.build(id)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	if err := s.notificationRepo.CreateBulkNotifications(db, rows); err != nil {
		logger.NotificationLog(event, len(rows), err)
		return 0, err
	}
	logger.NotificationLog(event, len(rows), nil)

	for _, row := range rows {
		s.Push(row)
	}
	if n.email {
		s.sendEmail(db, event, ids, n)
	}
	return len(rows), nil
}

func (n notice) build(userID uint) (*models.Notification, error) {
	row := &models.Notification{
		UserID:  userID,
		Title:   n.title,
		Message: n.message,
		Type:    n.typ,
	}
	if n.relatedType != "" && n.relatedID != 0 {
		relatedType, relatedID := n.relatedType, n.relatedID
		row.RelatedType = &relatedType
		row.RelatedID = &relatedID
	}
	if len(n.data) > 0 {
		raw, err := json.Marshal(n.data)
		if err != nil {
			return nil, fmt.Errorf("marshal notification data: %w", err)
		}
		row.Data = datatypes.JSON(raw)
	}
	return row, nil
}

func (s *NotificationServiceImpl) Push(n *models.Notification) {
	if s.pusher == nil || n == nil {
		return
	}
	s.pusher.PushToUser(n.UserID, ws.EventNotification, n)
}

// sendEmail - письма скрытой копией, ошибка только логируется
func (s *NotificationServiceImpl) sendEmail(db *gorm.DB, event string, ids []uint, n notice) {
	if s.emailProvider == nil {
		return
	}
	emails, err := s.userRepo.FindEmailsByIDs(db, ids)
	if err != nil || len(emails) == 0 {
		if err != nil {
			logger.Warn("failed to resolve notification emails", "event", event, "error", err.Error())
		}
		return
	}
	if err := s.emailProvider.Send(email.NewBroadcast(emails, n.title, n.message)); err != nil {
		logger.Warn("failed to send notification email", "event", event, "recipients", len(emails), "error", err.Error())
	}
}

// ============================================
// Admin events
// ============================================

func (s *NotificationServiceImpl) NotifyAdminsNewHospital(ctx context.Context, db *gorm.DB, user *models.User) {
	s.dispatch(ctx, db, "admin.new_hospital", s.admins(), notice{
		title:       "New Hospital Registration",
		message:     fmt.Sprintf("%s has registered as a hospital and is waiting for approval.", user.Name),
		typ:         TypeNewRegistration,
		relatedType: relatedUser,
		relatedID:   user.ID,
		data:        map[string]any{"role": user.Role, "email": user.Email},
	})
}

func (s *NotificationServiceImpl) NotifyAdminsNewDonor(ctx context.Context, db *gorm.DB, user *models.User) {
	s.dispatch(ctx, db, "admin.new_donor", s.admins(), notice{
		title:       "New Donor Registration",
		message:     fmt.Sprintf("%s has registered as a donor and is waiting for approval.", user.Name),
		typ:         TypeNewRegistration,
		relatedType: relatedUser,
		relatedID:   user.ID,
		data:        map[string]any{"role": user.Role, "email": user.Email},
	})
}

func (s *NotificationServiceImpl) NotifyAdminsNewSeeker(ctx context.Context, db *gorm.DB, user *models.User) {
	s.dispatch(ctx, db, "admin.new_seeker", s.admins(), notice{
		title:       "New Seeker Registration",
		message:     fmt.Sprintf("%s has registered as a blood seeker and is waiting for approval.", user.Name),
		typ:         TypeNewRegistration,
		relatedType: relatedUser,
		relatedID:   user.ID,
		data:        map[string]any{"role": user.Role, "email": user.Email},
	})
}

// newRequestNotice: для экстренной заявки меняются заголовок и тип, отдельного уведомления нет
func newRequestNotice(request *models.BloodRequest, source, requesterName string) notice {
	n := notice{
		title: fmt.Sprintf("New Blood Request from %s", source),
		message: fmt.Sprintf("%s requested %d unit(s) of %s blood in %s.",
			requesterName, request.UnitsNeeded, request.BloodType, request.City),
		typ:         TypeNewRequest,
		relatedType: relatedRequest,
		relatedID:   request.ID,
		data: map[string]any{
			"blood_type": request.BloodType,
			"urgency":    request.Urgency,
			"units":      request.UnitsNeeded,
		},
	}
	if request.Urgency == models.UrgencyEmergency {
		n.title = fmt.Sprintf("🚨 EMERGENCY Blood Request from %s", source)
		n.typ = TypeEmergencyRequest
	}
	return n
}

func (s *NotificationServiceImpl) NotifyAdminsNewHospitalRequest(ctx context.Context, db *gorm.DB, request *models.BloodRequest, hospitalName string) {
	s.dispatch(ctx, db, "admin.new_hospital_request", s.admins(), newRequestNotice(request, "Hospital", hospitalName))
}

func (s *NotificationServiceImpl) NotifyAdminsNewSeekerRequest(ctx context.Context, db *gorm.DB, request *models.BloodRequest, seekerName string) {
	s.dispatch(ctx, db, "admin.new_seeker_request", s.admins(), newRequestNotice(request, "Seeker", seekerName))
}

func (s *NotificationServiceImpl) NotifyAdminsVoluntarySubmitted(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string) {
	s.dispatch(ctx, db, "admin.voluntary_submitted", s.admins(), notice{
		title:       "New Voluntary Donation",
		message:     fmt.Sprintf("%s wants to donate %s blood voluntarily in %s.", donorName, v.BloodType, v.City),
		typ:         TypeVoluntary,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyAdminsDonationCompleted(ctx context.Context, db *gorm.DB, donation *models.Donation, donorName string) {
	s.dispatch(ctx, db, "admin.donation_completed", s.admins(), notice{
		title:       "Donation Completed",
		message:     fmt.Sprintf("%s completed a donation for request #%d.", donorName, donation.RequestID),
		typ:         TypeDonationCompleted,
		relatedType: relatedDonation,
		relatedID:   donation.ID,
	})
}

func (s *NotificationServiceImpl) NotifyAdminsDonationCancelled(ctx context.Context, db *gorm.DB, donation *models.Donation, donorName string) {
	s.dispatch(ctx, db, "admin.donation_cancelled", s.admins(), notice{
		title:       "Donation Cancelled",
		message:     fmt.Sprintf("%s cancelled a donation for request #%d.", donorName, donation.RequestID),
		typ:         TypeDonationCancelled,
		relatedType: relatedDonation,
		relatedID:   donation.ID,
	})
}

// ============================================
// Donor events
// ============================================

func (s *NotificationServiceImpl) NotifyDonorApproved(ctx context.Context, db *gorm.DB, donorUserID uint) {
	s.dispatch(ctx, db, "donor.approved", toUser(donorUserID), notice{
		title:   "Account Approved",
		message: "Your donor account has been approved. You can now respond to blood requests.",
		typ:     TypeAccountApproved,
	})
}

func (s *NotificationServiceImpl) NotifyDonorRejected(ctx context.Context, db *gorm.DB, donorUserID uint, reason string) {
	s.dispatch(ctx, db, "donor.rejected", toUser(donorUserID), notice{
		title:   "Account Not Approved",
		message: withReason("Your donor account registration was not approved.", reason),
		typ:     TypeAccountRejected,
	})
}

func (s *NotificationServiceImpl) NotifyMatchingDonors(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.dispatch(ctx, db, "donor.matching_request", s.matchingDonors(request), notice{
		title:       fmt.Sprintf("Blood Request: %s needed", request.BloodType),
		message:     fmt.Sprintf("A patient in %s needs %d unit(s) of %s blood. Your help can save a life.", request.City, request.UnitsNeeded, request.BloodType),
		typ:         TypeMatchingRequest,
		relatedType: relatedRequest,
		relatedID:   request.ID,
		data:        map[string]any{"blood_type": request.BloodType, "city": request.City, "urgency": request.Urgency},
	})
}

func (s *NotificationServiceImpl) NotifyEmergencyMatchingDonors(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.dispatch(ctx, db, "donor.emergency_matching_request", s.matchingDonors(request), notice{
		title:       fmt.Sprintf("🚨 EMERGENCY: %s blood needed", request.BloodType),
		message:     fmt.Sprintf("An emergency patient in %s urgently needs %d unit(s) of %s blood. Please respond as soon as possible.", request.City, request.UnitsNeeded, request.BloodType),
		typ:         TypeEmergencyMatch,
		relatedType: relatedRequest,
		relatedID:   request.ID,
		data:        map[string]any{"blood_type": request.BloodType, "city": request.City, "urgency": request.Urgency},
		email:       true,
	})
}

func (s *NotificationServiceImpl) NotifyDonorDonationAccepted(ctx context.Context, db *gorm.DB, donorUserID uint, donation *models.Donation, request *models.BloodRequest) {
	s.dispatch(ctx, db, "donor.donation_accepted", toUser(donorUserID), notice{
		title:       "Donation Confirmed",
		message:     fmt.Sprintf("Thank you for accepting the %s blood request in %s. Please keep your status updated.", request.BloodType, request.City),
		typ:         TypeDonationAccepted,
		relatedType: relatedDonation,
		relatedID:   donation.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorAppointmentScheduled(ctx context.Context, db *gorm.DB, donorUserID uint, v *models.VoluntaryDonation) {
	s.dispatch(ctx, db, "donor.appointment_scheduled", toUser(donorUserID), notice{
		title:       "Appointment Scheduled",
		message:     fmt.Sprintf("Your donation appointment is scheduled for %s.", formatWhen(v.ScheduledAt)),
		typ:         TypeAppointment,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorAppointmentReminder(ctx context.Context, db *gorm.DB, donorUserID uint, v *models.VoluntaryDonation) {
	s.dispatch(ctx, db, "donor.appointment_reminder", toUser(donorUserID), notice{
		title:       "Appointment Reminder",
		message:     fmt.Sprintf("Reminder: your donation appointment is on %s. Remember to eat well and stay hydrated.", formatWhen(v.ScheduledAt)),
		typ:         TypeReminder,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorDonationCompleted(ctx context.Context, db *gorm.DB, donorUserID uint, donation *models.Donation) {
	s.dispatch(ctx, db, "donor.donation_completed", toUser(donorUserID), notice{
		title:       "Thank You for Donating!",
		message:     "Your donation has been recorded. You just helped save a life.",
		typ:         TypeDonationCompleted,
		relatedType: relatedDonation,
		relatedID:   donation.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorVoluntaryApproved(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation) {
	s.dispatch(ctx, db, "donor.voluntary_approved", toUser(v.DonorUserID), notice{
		title:       "Voluntary Donation Approved",
		message:     "Your voluntary donation offer has been approved. A hospital will be assigned shortly.",
		typ:         TypeVoluntary,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorVoluntaryRejected(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, reason string) {
	s.dispatch(ctx, db, "donor.voluntary_rejected", toUser(v.DonorUserID), notice{
		title:       "Voluntary Donation Not Approved",
		message:     withReason("Your voluntary donation offer was not approved.", reason),
		typ:         TypeVoluntary,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorHospitalAssigned(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, hospitalName string) {
	s.dispatch(ctx, db, "donor.hospital_assigned", toUser(v.DonorUserID), notice{
		title:       "Hospital Assigned",
		message:     fmt.Sprintf("%s has been assigned to your voluntary donation.", hospitalName),
		typ:         TypeHospitalAssigned,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyDonorEligibilityRestored(ctx context.Context, db *gorm.DB, donorUserID uint) {
	s.dispatch(ctx, db, "donor.eligibility_restored", toUser(donorUserID), notice{
		title:   "You Can Donate Again",
		message: "Your waiting period is over. You are eligible to donate blood again.",
		typ:     TypeEligibility,
	})
}

func (s *NotificationServiceImpl) NotifyDonorMilestone(ctx context.Context, db *gorm.DB, donorUserID uint, totalDonations int) {
	title, message := MilestoneMessage(totalDonations)
	s.dispatch(ctx, db, "donor.milestone", toUser(donorUserID), notice{
		title:   title,
		message: message,
		typ:     TypeAchievement,
		data:    map[string]any{"total_donations": totalDonations},
	})
}

// MilestoneMessage - фиксированные тексты для 5/10/25/50/100, для остальных общий
func MilestoneMessage(total int) (string, string) {
	switch total {
	case 5:
		return "🏅 5 Donations!", "You have completed 5 donations. You are a true lifesaver!"
	case 10:
		return "🥉 10 Donations!", "10 donations completed. Your generosity is changing lives!"
	case 25:
		return "🥈 25 Donations!", "25 donations! You are one of our most dedicated donors."
	case 50:
		return "🥇 50 Donations!", "50 donations completed. You are a hero to our community!"
	case 100:
		return "🏆 100 Donations!", "100 donations! A legendary achievement. Thank you!"
	}
	return "Donation Milestone", fmt.Sprintf("You have completed %d donations. Thank you for your continued support!", total)
}

// IsMilestone - стоит ли поздравлять донора
func IsMilestone(total int) bool {
	switch total {
	case 5, 10, 25, 50, 100:
		return true
	}
	return false
}

// ============================================
// Hospital events
// ============================================

func (s *NotificationServiceImpl) NotifyHospitalApproved(ctx context.Context, db *gorm.DB, hospitalUserID uint) {
	s.dispatch(ctx, db, "hospital.approved", toUser(hospitalUserID), notice{
		title:   "Hospital Account Approved",
		message: "Your hospital account has been approved. You can now create blood requests.",
		typ:     TypeAccountApproved,
	})
}

func (s *NotificationServiceImpl) NotifyHospitalRejected(ctx context.Context, db *gorm.DB, hospitalUserID uint, reason string) {
	s.dispatch(ctx, db, "hospital.rejected", toUser(hospitalUserID), notice{
		title:   "Hospital Account Not Approved",
		message: withReason("Your hospital registration was not approved.", reason),
		typ:     TypeAccountRejected,
	})
}

func (s *NotificationServiceImpl) NotifyHospitalRequestApproved(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest) {
	s.dispatch(ctx, db, "hospital.request_approved", toUser(hospitalUserID), notice{
		title:       "Blood Request Approved",
		message:     fmt.Sprintf("Your request #%d for %s blood has been approved and matching donors were notified.", request.ID, request.BloodType),
		typ:         TypeRequestStatus,
		relatedType: relatedRequest,
		relatedID:   request.ID,
	})
}

func (s *NotificationServiceImpl) NotifyHospitalRequestRejected(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest, reason string) {
	s.dispatch(ctx, db, "hospital.request_rejected", toUser(hospitalUserID), notice{
		title:       "Blood Request Rejected",
		message:     withReason(fmt.Sprintf("Your request #%d for %s blood was rejected.", request.ID, request.BloodType), reason),
		typ:         TypeRequestStatus,
		relatedType: relatedRequest,
		relatedID:   request.ID,
	})
}

func (s *NotificationServiceImpl) hospitalDonorUpdate(ctx context.Context, db *gorm.DB, event string, hospitalUserID uint, donation *models.Donation, title, message string) {
	s.dispatch(ctx, db, event, toUser(hospitalUserID), notice{
		title:       title,
		message:     message,
		typ:         TypeDonorUpdate,
		relatedType: relatedDonation,
		relatedID:   donation.ID,
		data:        map[string]any{"request_id": donation.RequestID, "status": donation.Status},
	})
}

func (s *NotificationServiceImpl) NotifyHospitalDonorAccepted(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string) {
	s.hospitalDonorUpdate(ctx, db, "hospital.donor_accepted", hospitalUserID, donation,
		"Donor Accepted Request", fmt.Sprintf("%s accepted blood request #%d.", donorName, donation.RequestID))
}

func (s *NotificationServiceImpl) NotifyHospitalDonorOnTheWay(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string) {
	s.hospitalDonorUpdate(ctx, db, "hospital.donor_on_the_way", hospitalUserID, donation,
		"Donor On The Way", fmt.Sprintf("%s is on the way for request #%d.", donorName, donation.RequestID))
}

func (s *NotificationServiceImpl) NotifyHospitalDonorReached(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string) {
	s.hospitalDonorUpdate(ctx, db, "hospital.donor_reached", hospitalUserID, donation,
		"Donor Arrived", fmt.Sprintf("%s has arrived at the hospital for request #%d.", donorName, donation.RequestID))
}

func (s *NotificationServiceImpl) NotifyHospitalDonorCancelled(ctx context.Context, db *gorm.DB, hospitalUserID uint, donation *models.Donation, donorName string) {
	s.hospitalDonorUpdate(ctx, db, "hospital.donor_cancelled", hospitalUserID, donation,
		"Donor Cancelled", fmt.Sprintf("%s cancelled the donation for request #%d.", donorName, donation.RequestID))
}

func (s *NotificationServiceImpl) NotifyHospitalRequestFulfilled(ctx context.Context, db *gorm.DB, hospitalUserID uint, request *models.BloodRequest) {
	s.dispatch(ctx, db, "hospital.request_fulfilled", toUser(hospitalUserID), notice{
		title:       "Blood Request Fulfilled",
		message:     fmt.Sprintf("All %d unit(s) for request #%d have been donated.", request.UnitsNeeded, request.ID),
		typ:         TypeRequestFulfilled,
		relatedType: relatedRequest,
		relatedID:   request.ID,
	})
}

func (s *NotificationServiceImpl) NotifyHospitalVoluntaryAssigned(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string) {
	if v.HospitalUserID == nil {
		return
	}
	s.dispatch(ctx, db, "hospital.voluntary_assigned", toUser(*v.HospitalUserID), notice{
		title:       "Voluntary Donor Assigned",
		message:     fmt.Sprintf("%s (%s) has been assigned to your hospital for a voluntary donation.", donorName, v.BloodType),
		typ:         TypeHospitalAssigned,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

func (s *NotificationServiceImpl) NotifyHospitalVoluntaryReady(ctx context.Context, db *gorm.DB, v *models.VoluntaryDonation, donorName string) {
	if v.HospitalUserID == nil {
		return
	}
	s.dispatch(ctx, db, "hospital.voluntary_ready", toUser(*v.HospitalUserID), notice{
		title:       "Upcoming Voluntary Donation",
		message:     fmt.Sprintf("%s is scheduled to donate on %s. Please be ready.", donorName, formatWhen(v.ScheduledAt)),
		typ:         TypeReminder,
		relatedType: relatedVoluntary,
		relatedID:   v.ID,
	})
}

// ============================================
// Seeker events
// ============================================

func (s *NotificationServiceImpl) seekerEvent(ctx context.Context, db *gorm.DB, event string, request *models.BloodRequest, typ, title, message string) {
	if request.RequesterRole != models.UserRoleSeeker {
		return
	}
	s.dispatch(ctx, db, event, toUser(request.RequesterID), notice{
		title:       title,
		message:     message,
		typ:         typ,
		relatedType: relatedRequest,
		relatedID:   request.ID,
	})
}

func (s *NotificationServiceImpl) NotifySeekerRequestSubmitted(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.seekerEvent(ctx, db, "seeker.request_submitted", request, TypeRequestStatus,
		"Request Submitted", fmt.Sprintf("Your request for %d unit(s) of %s blood was submitted and is awaiting review.", request.UnitsNeeded, request.BloodType))
}

func (s *NotificationServiceImpl) NotifySeekerRequestApproved(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.seekerEvent(ctx, db, "seeker.request_approved", request, TypeRequestStatus,
		"Request Approved", "Your blood request has been approved. We are notifying matching donors.")
}

func (s *NotificationServiceImpl) NotifySeekerRequestRejected(ctx context.Context, db *gorm.DB, request *models.BloodRequest, reason string) {
	s.seekerEvent(ctx, db, "seeker.request_rejected", request, TypeRequestStatus,
		"Request Rejected", withReason("Your blood request was rejected.", reason))
}

func (s *NotificationServiceImpl) NotifySeekerDonorFound(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string) {
	s.seekerEvent(ctx, db, "seeker.donor_found", request, TypeDonorUpdate,
		"Donor Found!", fmt.Sprintf("%s has accepted your blood request.", donorName))
}

func (s *NotificationServiceImpl) NotifySeekerDonorOnTheWay(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string) {
	s.seekerEvent(ctx, db, "seeker.donor_on_the_way", request, TypeDonorUpdate,
		"Donor On The Way", fmt.Sprintf("%s is on the way to donate.", donorName))
}

func (s *NotificationServiceImpl) NotifySeekerDonationCompleted(ctx context.Context, db *gorm.DB, request *models.BloodRequest, donorName string) {
	s.seekerEvent(ctx, db, "seeker.donation_completed", request, TypeDonationCompleted,
		"Donation Completed", fmt.Sprintf("%s has completed a donation for your request.", donorName))
}

func (s *NotificationServiceImpl) NotifySeekerRequestFulfilled(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.seekerEvent(ctx, db, "seeker.request_fulfilled", request, TypeRequestFulfilled,
		"Request Fulfilled", "All requested units have been donated. We wish the patient a quick recovery.")
}

func (s *NotificationServiceImpl) NotifySeekerRequestExpired(ctx context.Context, db *gorm.DB, request *models.BloodRequest) {
	s.seekerEvent(ctx, db, "seeker.request_expired", request, TypeRequestExpired,
		"Request Expired", "Your blood request has expired. You can submit a new one if blood is still needed.")
}

// ============================================
// Chat
// ============================================

// NotifyNewMessage вызывается внутри транзакции отправки: ошибка откатывает отправку
func (s *NotificationServiceImpl) NotifyNewMessage(db *gorm.DB, sender *models.User, message *chat.Message) (*models.Notification, error) {
	n := notice{
		title:       fmt.Sprintf("New message from %s", sender.Name),
		message:     Preview(message.Message, chatPreviewLength),
		typ:         TypeChatMessage,
		relatedType: relatedMessage,
		relatedID:   message.ID,
		data: map[string]any{
			"sender_id":       sender.ID,
			"sender_role":     sender.Role,
			"conversation_id": message.ConversationID,
		},
	}
	row, err := n.build(message.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.CreateNotification(db, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Preview обрезает текст по рунам и добавляет многоточие
func Preview(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}

// ============================================
// Announcements
// ============================================

var audienceRoles = map[models.Audience][]models.UserRole{
	models.AudienceAll:       {models.UserRoleDonor, models.UserRoleHospital, models.UserRoleSeeker},
	models.AudienceDonors:    {models.UserRoleDonor},
	models.AudienceHospitals: {models.UserRoleHospital},
	models.AudienceSeekers:   {models.UserRoleSeeker},
}

// AnnouncementTitle добавляет маркер для важных объявлений
func AnnouncementTitle(title string, priority models.Priority) string {
	switch priority {
	case models.PriorityUrgent:
		return "🚨 " + title
	case models.PriorityHigh:
		return "⚠️ " + title
	}
	return title
}

func (s *NotificationServiceImpl) PublishAnnouncement(ctx context.Context, db *gorm.DB, adminID uint, req *dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	roles, ok := audienceRoles[req.TargetAudience]
	if !ok {
		return nil, apperrors.NewBadRequestError("Invalid target audience")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	announcement := &models.Announcement{
		Title:          req.Title,
		Message:        req.Message,
		TargetAudience: req.TargetAudience,
		Priority:       priority,
		CreatedBy:      adminID,
	}
	if err := s.notificationRepo.CreateAnnouncement(tx, announcement); err != nil {
		return nil, apperrors.InternalError(err)
	}

	recipients, err := s.userRepo.FindApprovedIDsByRoles(tx, roles...)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.notificationRepo.SetAnnouncementRecipients(tx, announcement.ID, len(recipients)); err != nil {
		return nil, apperrors.InternalError(err)
	}
	announcement.RecipientsCount = len(recipients)

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Рассылка после коммита, получатели уже известны
	s.dispatch(ctx, db, "announcement."+string(req.TargetAudience), func(*gorm.DB) ([]uint, error) {
		return recipients, nil
	}, notice{
		title:       AnnouncementTitle(req.Title, priority),
		message:     req.Message,
		typ:         TypeAnnouncement,
		relatedType: "announcement",
		relatedID:   announcement.ID,
		data:        map[string]any{"priority": priority, "audience": req.TargetAudience},
		email:       priority == models.PriorityUrgent,
	})

	return announcement, nil
}

// ============================================
// Helpers
// ============================================

func withReason(message, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return message
	}
	return message + " Reason: " + strings.TrimSpace(reason)
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "the scheduled date"
	}
	return t.Format("Jan 2, 2006 15:04")
}
