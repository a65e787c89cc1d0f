package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/models/chat"
	"blooddonation_backend/internal/permissions"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/ws"

	"gorm.io/gorm"
)

const (
	MaxMessageLength     = 5000
	defaultMessagesLimit = 50
	maxMessagesLimit     = 100
	defaultSearchLimit   = 20
)

// Все методы принимают 'db *gorm.DB' (пул или транзакция из DBMiddleware)
type ChatService interface {
	CheckPermission(db *gorm.DB, userID uint, query *dto.CheckPermissionQuery) (*dto.PermissionResponse, error)
	SearchUsers(db *gorm.DB, userID uint, query *dto.SearchUsersQuery) (*dto.SearchUsersResponse, error)
	SendMessage(ctx context.Context, db *gorm.DB, senderID uint, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	GetMessages(db *gorm.DB, userID uint, query *dto.GetMessagesQuery) (*dto.MessageListResponse, error)
	MarkRead(db *gorm.DB, userID uint, req *dto.MarkReadRequest) (*dto.MarkReadResponse, error)
	GetUnreadCount(db *gorm.DB, userID uint) (*dto.UnreadCountResponse, error)
	ListConversations(db *gorm.DB, userID uint) (*dto.ConversationListResponse, error)
}

type chatService struct {
	chatRepo            repositories.ChatRepository
	userRepo            repositories.UserRepository
	requestRepo         repositories.RequestRepository
	engine              *permissions.Engine
	notificationService NotificationService
	pusher              RealtimePusher
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	userRepo repositories.UserRepository,
	requestRepo repositories.RequestRepository,
	engine *permissions.Engine,
	notificationService NotificationService,
	pusher RealtimePusher,
) ChatService {
	return &chatService{
		chatRepo:            chatRepo,
		userRepo:            userRepo,
		requestRepo:         requestRepo,
		engine:              engine,
		notificationService: notificationService,
		pusher:              pusher,
	}
}

// =======================
// Permission
// =======================

// CheckPermission - предварительная проверка без побочных эффектов
func (s *chatService) CheckPermission(db *gorm.DB, userID uint, query *dto.CheckPermissionQuery) (*dto.PermissionResponse, error) {
	sender, err := s.loadCaller(db, userID)
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.FindByID(db, query.TargetUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	decision, err := s.decide(db, sender, target, permissions.Context{
		RequestID:   query.RequestID,
		DonationID:  query.DonationID,
		VoluntaryID: query.VoluntaryDonationID,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PermissionResponse{
		Success: true,
		CanChat: decision.Allowed,
		Reason:  decision.Reason.Message(),
		Code:    decision.Reason.String(),
	}, nil
}

func (s *chatService) decide(db *gorm.DB, sender, receiver *models.User, ctx permissions.Context) (permissions.Decision, error) {
	decision, err := s.engine.CanChat(
		repositories.NewEntityLookup(db, s.requestRepo),
		permissions.Subject{ID: sender.ID, Role: sender.Role},
		permissions.Subject{ID: receiver.ID, Role: receiver.Role},
		ctx,
	)
	if err != nil {
		return permissions.Decision{}, apperrors.InternalError(err)
	}
	logger.PermissionLog(sender.ID, receiver.ID, decision.Allowed, decision.Reason.String())
	return decision, nil
}

func (s *chatService) loadCaller(db *gorm.DB, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("User no longer exists")
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

// =======================
// Search
// =======================

func (s *chatService) SearchUsers(db *gorm.DB, userID uint, query *dto.SearchUsersQuery) (*dto.SearchUsersResponse, error) {
	caller, err := s.loadCaller(db, userID)
	if err != nil {
		return nil, err
	}

	roles := permissions.ChattableRoles(caller.Role)
	if query.Role != "" {
		if !permissions.CanSearchRole(caller.Role, query.Role) {
			// запрошенная роль недоступна - пустой результат, а не ошибка
			return &dto.SearchUsersResponse{Success: true, Users: []*dto.ChatUserResponse{}}, nil
		}
		roles = []models.UserRole{query.Role}
	}

	filter := repositories.UserSearchFilter{
		ExcludeID: caller.ID,
		Roles:     roles,
		Search:    query.Search,
		Limit:     query.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}

	if query.Context != "" {
		ids, err := s.contextParticipants(db, query.Context, query.ContextID)
		if err != nil {
			return nil, err
		}
		filter.OnlyIDs = ids
	}

	users, err := s.userRepo.Search(db, filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]*dto.ChatUserResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.NewChatUserResponse(&users[i]))
	}
	return &dto.SearchUsersResponse{Success: true, Users: result, Count: len(result)}, nil
}

// contextParticipants - участники сущности; несуществующая сущность дает пустой список
func (s *chatService) contextParticipants(db *gorm.DB, kind string, id uint) ([]uint, error) {
	lookup := repositories.NewEntityLookup(db, s.requestRepo)

	var (
		set permissions.ParticipantSet
		err error
	)
	switch kind {
	case "request":
		var f *permissions.RequestFacts
		if f, err = lookup.Request(id); err == nil {
			set = f.Participants
		}
	case "donation":
		var f *permissions.DonationFacts
		if f, err = lookup.Donation(id); err == nil {
			set = f.Participants
		}
	case "voluntary":
		var f *permissions.VoluntaryFacts
		if f, err = lookup.Voluntary(id); err == nil {
			set = f.Participants
		}
	default:
		return nil, apperrors.NewBadRequestError("Invalid context type")
	}

	if errors.Is(err, permissions.ErrNotFound) {
		return []uint{}, nil
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	ids := set.IDs()
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

// =======================
// Send
// =======================

// SendMessage: получатель, проверка прав, сообщение, метаданные диалога и
// уведомление фиксируются одной транзакцией
func (s *chatService) SendMessage(ctx context.Context, db *gorm.DB, senderID uint, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, apperrors.ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperrors.ErrMessageTooLong
	}
	if req.ReceiverID == 0 {
		return nil, apperrors.NewBadRequestError("receiver_id is required")
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	sender, err := s.loadCaller(tx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.userRepo.FindByID(tx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrReceiverNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	// Пожертвование должно относиться к указанной заявке - до проверки прав
	if req.DonationID != nil && req.RequestID != nil {
		donation, err := s.requestRepo.FindDonationByID(tx, *req.DonationID)
		if err != nil && !errors.Is(err, repositories.ErrDonationNotFound) {
			return nil, apperrors.InternalError(err)
		}
		if donation != nil && donation.RequestID != *req.RequestID {
			return nil, apperrors.ErrContextMismatch
		}
	}

	decision, err := s.decide(tx, sender, receiver, permissions.Context{
		RequestID:   req.RequestID,
		DonationID:  req.DonationID,
		VoluntaryID: req.VoluntaryDonationID,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.PermissionDenied(decision.Reason.String(), decision.Reason.Message())
	}

	message := &chat.Message{
		ConversationID: chat.Key(sender.ID, receiver.ID),
		SenderID:       sender.ID,
		ReceiverID:     receiver.ID,
		Message:        text,
	}
	if decision.Context != nil {
		message.RequestID = decision.Context.RequestID
		message.DonationID = decision.Context.DonationID
		message.VoluntaryDonationID = decision.Context.VoluntaryID
	} else if err := s.attachContext(tx, message, req); err != nil {
		return nil, err
	}

	if err := s.chatRepo.CreateMessage(tx, message); err != nil {
		return nil, apperrors.InternalError(err)
	}
	at := message.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := s.chatRepo.UpsertConversation(tx, message.ConversationID, sender.ID, receiver.ID, message.ID, at); err != nil {
		return nil, apperrors.InternalError(err)
	}

	notification, err := s.notificationService.NotifyNewMessage(tx, sender, message)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "chat message sent",
		"message_id", message.ID,
		"conversation_id", message.ConversationID,
		"reason", decision.Reason.String(),
	)

	// Только после коммита
	if s.pusher != nil {
		s.pusher.PushToUser(receiver.ID, ws.EventNewMessage, dto.NewMessageResponse(message, receiver.ID))
	}
	s.notificationService.Push(notification)

	return dto.NewMessageResponse(message, sender.ID), nil
}

// attachContext - путь админа: участие и активность не проверяются,
// но сохраняются только существующие сущности
func (s *chatService) attachContext(db *gorm.DB, message *chat.Message, req *dto.SendMessageRequest) error {
	deny := func(reason permissions.Reason) error {
		return apperrors.PermissionDenied(reason.String(), reason.Message())
	}

	if req.DonationID != nil {
		donation, err := s.requestRepo.FindDonationByID(db, *req.DonationID)
		if err != nil {
			if errors.Is(err, repositories.ErrDonationNotFound) {
				return deny(permissions.ReasonDonationNotFound)
			}
			return apperrors.InternalError(err)
		}
		message.DonationID = &donation.ID
		message.RequestID = &donation.RequestID
	}
	if req.RequestID != nil && message.RequestID == nil {
		request, err := s.requestRepo.FindRequestByID(db, *req.RequestID)
		if err != nil {
			if errors.Is(err, repositories.ErrRequestNotFound) {
				return deny(permissions.ReasonRequestNotFound)
			}
			return apperrors.InternalError(err)
		}
		message.RequestID = &request.ID
	}
	if req.VoluntaryDonationID != nil {
		v, err := s.requestRepo.FindVoluntaryByID(db, *req.VoluntaryDonationID)
		if err != nil {
			if errors.Is(err, repositories.ErrVoluntaryNotFound) {
				return deny(permissions.ReasonVolNotFound)
			}
			return apperrors.InternalError(err)
		}
		message.VoluntaryDonationID = &v.ID
	}
	return nil
}

// =======================
// Read
// =======================

// GetMessages отдает переписку и помечает входящие прочитанными
func (s *chatService) GetMessages(db *gorm.DB, userID uint, query *dto.GetMessagesQuery) (*dto.MessageListResponse, error) {
	if query.UserID == userID {
		return nil, apperrors.NewBadRequestError("Cannot open a conversation with yourself")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultMessagesLimit
	}
	if limit > maxMessagesLimit {
		limit = maxMessagesLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	criteria := repositories.MessageCriteria{
		Limit:   limit + 1,
		Offset:  offset,
		SinceID: query.SinceID,
	}
	if query.SinceTimestamp != "" {
		since, err := parseTimestamp(query.SinceTimestamp)
		if err != nil {
			return nil, apperrors.NewBadRequestError("Invalid since_timestamp format")
		}
		criteria.SinceTimestamp = &since
	}

	other, err := s.userRepo.FindByID(db, query.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	conversationID := chat.Key(userID, other.ID)

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if _, err := s.chatRepo.ReadConversation(tx, conversationID, userID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	messages, err := s.chatRepo.FindMessages(tx, conversationID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	result := make([]*dto.MessageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, dto.NewMessageResponse(&messages[i], userID))
	}

	return &dto.MessageListResponse{
		Success:        true,
		ConversationID: conversationID,
		Messages:       result,
		Count:          len(result),
		Limit:          limit,
		Offset:         offset,
		HasMore:        hasMore,
		OtherUser:      dto.NewChatUserResponse(other),
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unsupported timestamp format")
}

// MarkRead: single | batch | conversation. Для single/batch все сообщения
// должны быть адресованы вызывающему, иначе ничего не меняется.
func (s *chatService) MarkRead(db *gorm.DB, userID uint, req *dto.MarkReadRequest) (*dto.MarkReadResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	var marked int64
	switch req.Action {
	case "single", "batch":
		ids := req.MessageIDs
		if req.Action == "single" {
			if req.MessageID == 0 && len(req.MessageIDs) == 1 {
				ids = req.MessageIDs
			} else {
				ids = []uint{req.MessageID}
			}
		}
		ids = uniqueIDs(ids)
		if len(ids) == 0 {
			return nil, apperrors.NewBadRequestError("message_ids is required")
		}

		messages, err := s.chatRepo.FindMessagesByIDs(tx, ids)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if len(messages) != len(ids) {
			return nil, apperrors.ErrMessageOwnership
		}
		for _, m := range messages {
			if m.ReceiverID != userID {
				return nil, apperrors.ErrMessageOwnership
			}
		}

		marked, err = s.chatRepo.MarkMessagesRead(tx, userID, ids)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}

	case "conversation":
		if req.UserID == 0 {
			return nil, apperrors.NewBadRequestError("user_id is required")
		}
		conversationID := chat.Key(userID, req.UserID)
		var err error
		marked, err = s.chatRepo.ReadConversation(tx, conversationID, userID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}

	default:
		return nil, apperrors.NewBadRequestError("Invalid action")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.MarkReadResponse{Success: true, MarkedCount: marked}, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *chatService) GetUnreadCount(db *gorm.DB, userID uint) (*dto.UnreadCountResponse, error) {
	rows, err := s.chatRepo.UnreadBySender(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.UnreadCountResponse{Success: true, BySender: make([]*dto.SenderUnreadResponse, 0, len(rows))}
	for _, row := range rows {
		resp.TotalUnread += row.UnreadCount
		resp.BySender = append(resp.BySender, &dto.SenderUnreadResponse{
			SenderID:    row.SenderID,
			SenderName:  row.SenderName,
			SenderRole:  models.UserRole(row.SenderRole),
			UnreadCount: row.UnreadCount,
		})
	}
	return resp, nil
}

// =======================
// Conversations
// =======================

func (s *chatService) ListConversations(db *gorm.DB, userID uint) (*dto.ConversationListResponse, error) {
	convs, err := s.chatRepo.FindUserConversations(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	otherIDs := make([]uint, 0, len(convs))
	messageIDs := make([]uint, 0, len(convs))
	for i := range convs {
		otherIDs = append(otherIDs, convs[i].OtherUser(userID))
		if convs[i].LastMessageID != nil {
			messageIDs = append(messageIDs, *convs[i].LastMessageID)
		}
	}

	users, err := s.userRepo.FindByIDs(db, otherIDs)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	usersByID := make(map[uint]*models.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = &users[i]
	}

	messages, err := s.chatRepo.FindMessagesByIDs(db, messageIDs)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	messagesByID := make(map[uint]*chat.Message, len(messages))
	for i := range messages {
		messagesByID[messages[i].ID] = &messages[i]
	}

	result := make([]*dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		item := &dto.ConversationResponse{
			ConversationID: c.ConversationID,
			OtherUser:      dto.NewChatUserResponse(usersByID[c.OtherUser(userID)]),
			LastMessageAt:  c.LastMessageAt,
			UnreadCount:    c.UnreadFor(userID),
		}
		if c.LastMessageID != nil {
			if m, ok := messagesByID[*c.LastMessageID]; ok {
				item.LastMessage = dto.NewMessageResponse(m, userID)
			}
		}
		result = append(result, item)
	}

	return &dto.ConversationListResponse{Success: true, Conversations: result}, nil
}
