package repositories

import (
	"errors"
	"time"

	"blooddonation_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

type NotificationRepository interface {
	// Notification operations
	CreateNotification(db *gorm.DB, notification *models.Notification) error
	CreateBulkNotifications(db *gorm.DB, notifications []*models.Notification) error
	FindNotificationByID(db *gorm.DB, id uint) (*models.Notification, error)
	FindUserNotifications(db *gorm.DB, userID uint, criteria NotificationCriteria) ([]models.Notification, int64, error)
	MarkAsRead(db *gorm.DB, id, userID uint) error
	MarkAllAsRead(db *gorm.DB, userID uint) (int64, error)
	GetUnreadCount(db *gorm.DB, userID uint) (int64, error)

	// Announcement operations
	CreateAnnouncement(db *gorm.DB, announcement *models.Announcement) error
	SetAnnouncementRecipients(db *gorm.DB, id uint, count int) error
}

type NotificationRepositoryImpl struct{}

// NotificationCriteria - фильтр входящих уведомлений
type NotificationCriteria struct {
	UnreadOnly bool
	Type       string
	Page       int
	PageSize   int
}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

// Notification operations

func (r *NotificationRepositoryImpl) CreateNotification(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) CreateBulkNotifications(db *gorm.DB, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return db.CreateInBatches(notifications, 100).Error
}

func (r *NotificationRepositoryImpl) FindNotificationByID(db *gorm.DB, id uint) (*models.Notification, error) {
	var notification models.Notification
	err := db.First(&notification, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindUserNotifications(db *gorm.DB, userID uint, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	query := db.Model(&models.Notification{}).Where("user_id = ?", userID)

	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := criteria.Page, criteria.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&notifications).Error
	return notifications, total, err
}

// MarkAsRead - только свое уведомление
func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, id, userID uint) error {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(db *gorm.DB, userID uint) (int64, error) {
	result := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) GetUnreadCount(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// Announcement operations

func (r *NotificationRepositoryImpl) CreateAnnouncement(db *gorm.DB, announcement *models.Announcement) error {
	return db.Create(announcement).Error
}

func (r *NotificationRepositoryImpl) SetAnnouncementRecipients(db *gorm.DB, id uint, count int) error {
	return db.Model(&models.Announcement{}).Where("id = ?", id).Update("recipients_count", count).Error
}
