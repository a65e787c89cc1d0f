package repositories

import (
	"errors"
	"fmt"
	"time"

	"blooddonation_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

type ChatRepository interface {
	// Message operations
	CreateMessage(db *gorm.DB, message *chat.Message) error
	FindMessageByID(db *gorm.DB, id uint) (*chat.Message, error)
	FindMessagesByIDs(db *gorm.DB, ids []uint) ([]chat.Message, error)
	FindMessages(db *gorm.DB, conversationID string, criteria MessageCriteria) ([]chat.Message, error)
	MarkIncomingRead(db *gorm.DB, conversationID string, receiverID uint) (int64, error)
	MarkMessagesRead(db *gorm.DB, receiverID uint, ids []uint) (int64, error)
	UnreadBySender(db *gorm.DB, receiverID uint) ([]SenderUnread, error)

	// Conversation metadata
	UpsertConversation(db *gorm.DB, conversationID string, senderID, receiverID, messageID uint, at time.Time) error
	ClearUnread(db *gorm.DB, conversationID string, userID uint) error
	ReadConversation(db *gorm.DB, conversationID string, userID uint) (int64, error)
	FindConversation(db *gorm.DB, conversationID string) (*chat.Conversation, error)
	FindUserConversations(db *gorm.DB, userID uint) ([]chat.Conversation, error)
}

type ChatRepositoryImpl struct{}

// MessageCriteria - параметры выборки сообщений диалога
type MessageCriteria struct {
	Limit          int
	Offset         int
	SinceID        uint
	SinceTimestamp *time.Time
}

// SenderUnread - строка разбивки непрочитанных по отправителю
type SenderUnread struct {
	SenderID    uint   `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	SenderRole  string `json:"sender_role"`
	UnreadCount int64  `json:"unread_count"`
}

func NewChatRepository() ChatRepository {
	return &ChatRepositoryImpl{}
}

// Message operations

func (r *ChatRepositoryImpl) CreateMessage(db *gorm.DB, message *chat.Message) error {
	return db.Create(message).Error
}

func (r *ChatRepositoryImpl) FindMessageByID(db *gorm.DB, id uint) (*chat.Message, error) {
	var message chat.Message
	err := db.First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

func (r *ChatRepositoryImpl) FindMessagesByIDs(db *gorm.DB, ids []uint) ([]chat.Message, error) {
	var messages []chat.Message
	if len(ids) == 0 {
		return messages, nil
	}
	err := db.Where("id IN ?", ids).Order("id ASC").Find(&messages).Error
	return messages, err
}

// FindMessages - по возрастанию id (id монотонны и совпадают с порядком вставки)
func (r *ChatRepositoryImpl) FindMessages(db *gorm.DB, conversationID string, criteria MessageCriteria) ([]chat.Message, error) {
	var messages []chat.Message
	query := db.Where("conversation_id = ?", conversationID)

	if criteria.SinceID > 0 {
		query = query.Where("id > ?", criteria.SinceID)
	}
	if criteria.SinceTimestamp != nil {
		query = query.Where("created_at > ?", *criteria.SinceTimestamp)
	}
	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}
	if criteria.Offset > 0 {
		query = query.Offset(criteria.Offset)
	}

	err := query.Order("id ASC").Find(&messages).Error
	return messages, err
}

// MarkIncomingRead помечает прочитанными все сообщения диалога, адресованные receiverID
func (r *ChatRepositoryImpl) MarkIncomingRead(db *gorm.DB, conversationID string, receiverID uint) (int64, error) {
	result := db.Model(&chat.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, receiverID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

// MarkMessagesRead помечает сообщения и уменьшает счетчики по каждому затронутому диалогу.
// Уже прочитанные сообщения не считаются.
func (r *ChatRepositoryImpl) MarkMessagesRead(db *gorm.DB, receiverID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var conversationIDs []string
	err := db.Model(&chat.Message{}).
		Where("id IN ? AND receiver_id = ? AND is_read = ?", ids, receiverID, false).
		Distinct().
		Pluck("conversation_id", &conversationIDs).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var total int64
	for _, conversationID := range conversationIDs {
		result := db.Model(&chat.Message{}).
			Where("id IN ? AND conversation_id = ? AND receiver_id = ? AND is_read = ?", ids, conversationID, receiverID, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": now})
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := r.decrementUnread(db, conversationID, receiverID, result.RowsAffected); err != nil {
			return 0, err
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (r *ChatRepositoryImpl) decrementUnread(db *gorm.DB, conversationID string, userID uint, n int64) error {
	conv, err := r.FindConversation(db, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil
		}
		return err
	}
	col := chat.UnreadColumn(conv.User1ID, userID)
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %s >= ? THEN %s - ? ELSE 0 END", col, col), n, n)
	return db.Model(&chat.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update(col, expr).Error
}

func (r *ChatRepositoryImpl) UnreadBySender(db *gorm.DB, receiverID uint) ([]SenderUnread, error) {
	var rows []SenderUnread
	err := db.Model(&chat.Message{}).
		Select("chat_messages.sender_id AS sender_id, users.name AS sender_name, users.role AS sender_role, COUNT(*) AS unread_count").
		Joins("JOIN users ON users.id = chat_messages.sender_id").
		Where("chat_messages.receiver_id = ? AND chat_messages.is_read = ?", receiverID, false).
		Group("chat_messages.sender_id, users.name, users.role").
		Order("unread_count DESC").
		Scan(&rows).Error
	return rows, err
}

// Conversation metadata

// UpsertConversation создает строку метаданных при первом сообщении и атомарно
// увеличивает счетчик получателя. Счетчик отправителя не трогается.
func (r *ChatRepositoryImpl) UpsertConversation(db *gorm.DB, conversationID string, senderID, receiverID, messageID uint, at time.Time) error {
	lo, hi := chat.OrderedPair(senderID, receiverID)

	conv := chat.Conversation{
		ConversationID: conversationID,
		User1ID:        lo,
		User2ID:        hi,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
		return err
	}

	col := chat.UnreadColumn(lo, receiverID)
	result := db.Model(&chat.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			col:               gorm.Expr(col + " + 1"),
			"last_message_id": messageID,
			"last_message_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ClearUnread обнуляет счетчик слота userID. Строку не создает.
func (r *ChatRepositoryImpl) ClearUnread(db *gorm.DB, conversationID string, userID uint) error {
	conv, err := r.FindConversation(db, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil
		}
		return err
	}
	if userID != conv.User1ID && userID != conv.User2ID {
		return nil
	}
	return db.Model(&chat.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update(chat.UnreadColumn(conv.User1ID, userID), 0).Error
}

// ReadConversation помечает входящие прочитанными и обнуляет слот userID.
// Строка метаданных блокируется до пометки: отправка, закоммиченная между
// пометкой и обнулением, иначе осталась бы непрочитанной при нулевом счетчике.
// Вызывать внутри транзакции.
func (r *ChatRepositoryImpl) ReadConversation(db *gorm.DB, conversationID string, userID uint) (int64, error) {
	var locked []chat.Conversation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("conversation_id = ?", conversationID).
		Limit(1).
		Find(&locked).Error
	if err != nil {
		return 0, err
	}

	marked, err := r.MarkIncomingRead(db, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if len(locked) == 0 {
		return marked, nil
	}
	return marked, r.ClearUnread(db, conversationID, userID)
}

func (r *ChatRepositoryImpl) FindConversation(db *gorm.DB, conversationID string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := db.Where("conversation_id = ?", conversationID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ChatRepositoryImpl) FindUserConversations(db *gorm.DB, userID uint) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	err := db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}
