package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Message     string         `gorm:"type:text" json:"message"`
	Type        string         `gorm:"size:64;not null;index" json:"type"`
	RelatedType *string        `gorm:"size:32" json:"related_type,omitempty"`
	RelatedID   *uint          `json:"related_id,omitempty"`
	Data        datatypes.JSON `json:"data,omitempty"`
	IsRead      bool           `gorm:"default:false;index" json:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type Announcement struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Message         string    `gorm:"type:text;not null" json:"message"`
	TargetAudience  Audience  `gorm:"type:varchar(20);not null" json:"target_audience"`
	Priority        Priority  `gorm:"type:varchar(20);default:'normal'" json:"priority"`
	CreatedBy       uint      `gorm:"not null" json:"created_by"`
	RecipientsCount int       `gorm:"default:0" json:"recipients_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
