package chat

import "time"

type Message struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID      string     `gorm:"size:64;index;not null" json:"conversation_id"`
	SenderID            uint       `gorm:"index;not null" json:"sender_id"`
	ReceiverID          uint       `gorm:"index;not null" json:"receiver_id"`
	Message             string     `gorm:"type:text;not null" json:"message"`
	RequestID           *uint      `gorm:"index" json:"request_id"`
	DonationID          *uint      `gorm:"index" json:"donation_id"`
	VoluntaryDonationID *uint      `gorm:"index" json:"voluntary_donation_id"`
	IsRead              bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt              *time.Time `json:"read_at,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}
