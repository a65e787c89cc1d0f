package dto

import "blooddonation_backend/internal/models"

// ---------------- Requests ----------------

type NotificationListQuery struct {
	UnreadOnly bool   `form:"unread_only"`
	Type       string `form:"type" validate:"omitempty,max=64"`
}

type CreateAnnouncementRequest struct {
	Title          string          `json:"title" validate:"required,max=255"`
	Message        string          `json:"message" validate:"required,max=5000"`
	TargetAudience models.Audience `json:"target_audience" validate:"required,is-audience"`
	Priority       models.Priority `json:"priority" validate:"omitempty,is-priority"`
}

// ---------------- Responses ----------------

type NotificationListResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	UnreadCount   int64                 `json:"unread_count"`
}

type AnnouncementResponse struct {
	Success      bool                 `json:"success"`
	Announcement *models.Announcement `json:"announcement"`
}
