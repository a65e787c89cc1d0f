package dto

import (
	"time"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/models/chat"
)

// ---------------- Requests ----------------

type CheckPermissionQuery struct {
	TargetUserID        uint  `form:"target_user_id" validate:"required"`
	RequestID           *uint `form:"request_id"`
	DonationID          *uint `form:"donation_id"`
	VoluntaryDonationID *uint `form:"voluntary_donation_id"`
}

type SearchUsersQuery struct {
	Search    string          `form:"search" validate:"omitempty,max=100"`
	Role      models.UserRole `form:"role" validate:"omitempty,oneof=admin donor hospital seeker"`
	Limit     int             `form:"limit" validate:"omitempty,min=1,max=100"`
	Context   string          `form:"context" validate:"omitempty,oneof=request donation voluntary"`
	ContextID uint            `form:"context_id" validate:"required_with=Context"`
}

// Message проверяется в сервисе: длина считается после trim
type SendMessageRequest struct {
	ReceiverID          uint   `json:"receiver_id" validate:"required"`
	Message             string `json:"message"`
	RequestID           *uint  `json:"request_id,omitempty"`
	DonationID          *uint  `json:"donation_id,omitempty"`
	VoluntaryDonationID *uint  `json:"voluntary_donation_id,omitempty"`
}

type GetMessagesQuery struct {
	UserID         uint   `form:"user_id" validate:"required"`
	Limit          int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset         int    `form:"offset" validate:"omitempty,min=0"`
	SinceID        uint   `form:"since_id"`
	SinceTimestamp string `form:"since_timestamp"`
}

type MarkReadRequest struct {
	Action     string `json:"action" validate:"required,oneof=single batch conversation"`
	MessageID  uint   `json:"message_id,omitempty"`
	MessageIDs []uint `json:"message_ids,omitempty" validate:"omitempty,max=500"`
	UserID     uint   `json:"user_id,omitempty"`
}

// ---------------- Responses ----------------

type PermissionResponse struct {
	Success bool   `json:"success"`
	CanChat bool   `json:"can_chat"`
	Reason  string `json:"reason"`
	Code    string `json:"code"`
}

type MessageResponse struct {
	ID                  uint       `json:"id"`
	ConversationID      string     `json:"conversation_id"`
	SenderID            uint       `json:"sender_id"`
	ReceiverID          uint       `json:"receiver_id"`
	Message             string     `json:"message"`
	RequestID           *uint      `json:"request_id,omitempty"`
	DonationID          *uint      `json:"donation_id,omitempty"`
	VoluntaryDonationID *uint      `json:"voluntary_donation_id,omitempty"`
	IsRead              bool       `json:"is_read"`
	ReadAt              *time.Time `json:"read_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	IsMine              bool       `json:"is_mine"`
}

type MessageListResponse struct {
	Success        bool               `json:"success"`
	ConversationID string             `json:"conversation_id"`
	Messages       []*MessageResponse `json:"messages"`
	Count          int                `json:"count"`
	Limit          int                `json:"limit"`
	Offset         int                `json:"offset"`
	HasMore        bool               `json:"has_more"`
	OtherUser      *ChatUserResponse  `json:"other_user"`
}

type ChatUserResponse struct {
	ID     uint              `json:"id"`
	Name   string            `json:"name"`
	Email  string            `json:"email,omitempty"`
	Role   models.UserRole   `json:"role"`
	Status models.UserStatus `json:"status,omitempty"`
}

type SearchUsersResponse struct {
	Success bool                `json:"success"`
	Users   []*ChatUserResponse `json:"users"`
	Count   int                 `json:"count"`
}

type MarkReadResponse struct {
	Success     bool  `json:"success"`
	MarkedCount int64 `json:"marked_count"`
}

type SenderUnreadResponse struct {
	SenderID    uint            `json:"sender_id"`
	SenderName  string          `json:"sender_name"`
	SenderRole  models.UserRole `json:"sender_role"`
	UnreadCount int64           `json:"unread_count"`
}

type UnreadCountResponse struct {
	Success     bool                    `json:"success"`
	TotalUnread int64                   `json:"total_unread"`
	BySender    []*SenderUnreadResponse `json:"by_sender"`
}

type ConversationResponse struct {
	ConversationID string            `json:"conversation_id"`
	OtherUser      *ChatUserResponse `json:"other_user"`
	LastMessage    *MessageResponse  `json:"last_message,omitempty"`
	LastMessageAt  *time.Time        `json:"last_message_at,omitempty"`
	UnreadCount    int               `json:"unread_count"`
}

type ConversationListResponse struct {
	Success       bool                    `json:"success"`
	Conversations []*ConversationResponse `json:"conversations"`
}

// ---------------- Mappers ----------------

func NewMessageResponse(m *chat.Message, viewerID uint) *MessageResponse {
	return &MessageResponse{
		ID:                  m.ID,
		ConversationID:      m.ConversationID,
		SenderID:            m.SenderID,
		ReceiverID:          m.ReceiverID,
		Message:             m.Message,
		RequestID:           m.RequestID,
		DonationID:          m.DonationID,
		VoluntaryDonationID: m.VoluntaryDonationID,
		IsRead:              m.IsRead,
		ReadAt:              m.ReadAt,
		CreatedAt:           m.CreatedAt,
		IsMine:              m.SenderID == viewerID,
	}
}

func NewChatUserResponse(u *models.User) *ChatUserResponse {
	if u == nil {
		return nil
	}
	return &ChatUserResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}
}
