package models

import (
	"time"
)

// BaseModel - общий набор полей. ID числовой: на него опирается ключ диалога CONV_<min>_<max>.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
