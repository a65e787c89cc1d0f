package chat

import (
	"fmt"
	"time"
)

// Conversation - денормализованные метаданные пары пользователей.
// Слот 1 - меньший id, слот 2 - больший.
type Conversation struct {
	ConversationID   string     `gorm:"primaryKey;size:64" json:"conversation_id"`
	User1ID          uint       `gorm:"not null;index" json:"user1_id"`
	User2ID          uint       `gorm:"not null;index" json:"user2_id"`
	LastMessageID    *uint      `json:"last_message_id,omitempty"`
	LastMessageAt    *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	User1UnreadCount int        `gorm:"not null;default:0" json:"user1_unread_count"`
	User2UnreadCount int        `gorm:"not null;default:0" json:"user2_unread_count"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Conversation) TableName() string {
	return "chat_conversations"
}

// Key возвращает идентификатор диалога, не зависящий от порядка аргументов
func Key(a, b uint) string {
	lo, hi := OrderedPair(a, b)
	return fmt.Sprintf("CONV_%d_%d", lo, hi)
}

// OrderedPair возвращает (меньший, больший)
func OrderedPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// UnreadColumn - колонка счетчика для слота пользователя
func UnreadColumn(user1ID, userID uint) string {
	if userID == user1ID {
		return "user1_unread_count"
	}
	return "user2_unread_count"
}

// UnreadFor возвращает счетчик непрочитанных для пользователя
func (c *Conversation) UnreadFor(userID uint) int {
	if userID == c.User1ID {
		return c.User1UnreadCount
	}
	if userID == c.User2ID {
		return c.User2UnreadCount
	}
	return 0
}

// OtherUser - собеседник userID
func (c *Conversation) OtherUser(userID uint) uint {
	if userID == c.User1ID {
		return c.User2ID
	}
	return c.User1ID
}
