package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/models/chat"
	"blooddonation_backend/internal/permissions"
	"blooddonation_backend/internal/repositories"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/test/helpers"
	"blooddonation_backend/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// failingNotifications - уведомление о сообщении всегда падает
type failingNotifications struct {
	services.NotificationService
}

func (failingNotifications) NotifyNewMessage(*gorm.DB, *models.User, *chat.Message) (*models.Notification, error) {
	return nil, errors.New("notifications table is unavailable")
}

func TestSendMessage_RollsBackWhenNotificationFails(t *testing.T) {
	f := newFixture(t, nil)
	pusher := &recordingPusher{}
	chatService := services.NewChatService(
		repositories.NewChatRepository(),
		repositories.NewUserRepository(),
		repositories.NewRequestRepository(),
		permissions.NewEngine(),
		failingNotifications{f.notification},
		pusher,
	)

	seeker := helpers.CreateSeeker(t, f.db, "Seeker Sam")
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)

	_, err := chatService.SendMessage(context.Background(), f.db, seeker.ID, &dto.SendMessageRequest{
		ReceiverID: donor.ID,
		Message:    "hello",
	})
	requireAppError(t, err, http.StatusInternalServerError)

	var messages, conversations int64
	f.db.Model(&chat.Message{}).Count(&messages)
	f.db.Model(&chat.Conversation{}).Count(&conversations)
	assert.Zero(t, messages, "сообщение должно откатиться вместе с уведомлением")
	assert.Zero(t, conversations)
	assert.Empty(t, pusher.For(donor.ID, ws.EventNewMessage), "push только после коммита")
}

func TestSendMessage_PushesAfterCommit(t *testing.T) {
	f := newFixture(t, nil)
	seeker := helpers.CreateSeeker(t, f.db, "Seeker Sam")
	hospitalUser, _ := helpers.CreateHospital(t, f.db, "City Hospital", "Almaty")

	msg, err := f.chat.SendMessage(context.Background(), f.db, seeker.ID, &dto.SendMessageRequest{
		ReceiverID: hospitalUser.ID,
		Message:    "is the request still open?",
	})
	require.NoError(t, err)
	assert.True(t, msg.IsMine)

	events := f.pusher.For(hospitalUser.ID, ws.EventNewMessage)
	require.Len(t, events, 1)
	payload, ok := events[0].Data.(*dto.MessageResponse)
	require.True(t, ok)
	assert.False(t, payload.IsMine, "для получателя сообщение чужое")
	assert.Equal(t, msg.ID, payload.ID)

	notifications := f.pusher.For(hospitalUser.ID, ws.EventNotification)
	require.Len(t, notifications, 1)
	n := notifications[0].Data.(*models.Notification)
	assert.Equal(t, services.TypeChatMessage, n.Type)
	assert.Equal(t, "is the request still open?", n.Message)
}

func TestSendMessage_AdminContextMustExist(t *testing.T) {
	f := newFixture(t, nil)
	admin := helpers.CreateAdmin(t, f.db, "Admin One")
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)

	missing := uint(424242)
	cases := []struct {
		name   string
		req    dto.SendMessageRequest
		reason permissions.Reason
	}{
		{"request", dto.SendMessageRequest{RequestID: &missing}, permissions.ReasonRequestNotFound},
		{"donation", dto.SendMessageRequest{DonationID: &missing}, permissions.ReasonDonationNotFound},
		{"voluntary", dto.SendMessageRequest{VoluntaryDonationID: &missing}, permissions.ReasonVolNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			req.ReceiverID = donor.ID
			req.Message = "please update your profile"

			_, err := f.chat.SendMessage(context.Background(), f.db, admin.ID, &req)
			appErr := requireAppError(t, err, http.StatusForbidden)
			assert.Equal(t, tc.reason.String(), string(appErr.Code))
		})
	}

	var messages int64
	f.db.Model(&chat.Message{}).Count(&messages)
	assert.Zero(t, messages)
}

func TestSendMessage_AdminKeepsExistingContext(t *testing.T) {
	f := newFixture(t, nil)
	admin := helpers.CreateAdmin(t, f.db, "Admin One")
	donorUser, profile := helpers.CreateDonor(t, f.db, "Donor Dan", "A+", "Almaty")
	seeker := helpers.CreateSeeker(t, f.db, "Seeker Sam")
	// админ пишет и по завершенной заявке: активность не проверяется
	request := helpers.CreateRequest(t, f.db, seeker, nil, "A+", models.RequestStatusCompleted)
	donation := helpers.CreateDonation(t, f.db, profile, request, models.DonationStatusCompleted)

	msg, err := f.chat.SendMessage(context.Background(), f.db, admin.ID, &dto.SendMessageRequest{
		ReceiverID: donorUser.ID,
		Message:    "thank you for donating",
		DonationID: &donation.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, msg.DonationID)
	require.NotNil(t, msg.RequestID, "заявка берется из донации")
	assert.Equal(t, donation.ID, *msg.DonationID)
	assert.Equal(t, request.ID, *msg.RequestID)
}

func TestSendMessage_ContextResolvedFromDonation(t *testing.T) {
	f := newFixture(t, nil)
	donorUser, profile := helpers.CreateDonor(t, f.db, "Donor Dan", "A+", "Almaty")
	hospitalUser, hospital := helpers.CreateHospital(t, f.db, "City Hospital", "Almaty")
	request := helpers.CreateRequest(t, f.db, hospitalUser, hospital, "A+", models.RequestStatusInProgress)
	donation := helpers.CreateDonation(t, f.db, profile, request, models.DonationStatusOnTheWay)

	msg, err := f.chat.SendMessage(context.Background(), f.db, donorUser.ID, &dto.SendMessageRequest{
		ReceiverID: hospitalUser.ID,
		Message:    "five minutes away",
		DonationID: &donation.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, msg.RequestID, "заявка берется из донации")
	assert.Equal(t, request.ID, *msg.RequestID)
	assert.Equal(t, donation.ID, *msg.DonationID)
}

func TestSendMessage_UnreadCounterAccumulates(t *testing.T) {
	f := newFixture(t, nil)
	seeker := helpers.CreateSeeker(t, f.db, "Seeker Sam")
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)

	for i := 0; i < 3; i++ {
		_, err := f.chat.SendMessage(context.Background(), f.db, seeker.ID, &dto.SendMessageRequest{
			ReceiverID: donor.ID,
			Message:    "ping",
		})
		require.NoError(t, err)
	}
	// ответ не трогает счетчик собеседника
	_, err := f.chat.SendMessage(context.Background(), f.db, donor.ID, &dto.SendMessageRequest{
		ReceiverID: seeker.ID,
		Message:    "pong",
	})
	require.NoError(t, err)

	var conv chat.Conversation
	require.NoError(t, f.db.First(&conv, "conversation_id = ?", chat.Key(seeker.ID, donor.ID)).Error)
	assert.Equal(t, 3, conv.UnreadFor(donor.ID))
	assert.Equal(t, 1, conv.UnreadFor(seeker.ID))

	list, err := f.chat.ListConversations(f.db, donor.ID)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "pong", list.Conversations[0].LastMessage.Message)
	assert.Equal(t, 3, list.Conversations[0].UnreadCount)
}

func TestGetMessages_InvalidTimestamp(t *testing.T) {
	f := newFixture(t, nil)
	seeker := helpers.CreateSeeker(t, f.db, "Seeker Sam")
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)

	_, err := f.chat.GetMessages(f.db, donor.ID, &dto.GetMessagesQuery{UserID: seeker.ID, SinceTimestamp: "yesterday"})
	requireAppError(t, err, http.StatusBadRequest)

	list, err := f.chat.GetMessages(f.db, donor.ID, &dto.GetMessagesQuery{UserID: seeker.ID, SinceTimestamp: "2020-01-01 00:00:00"})
	require.NoError(t, err)
	assert.Empty(t, list.Messages)
	assert.Equal(t, defaultLimit, list.Limit)
}

const defaultLimit = 50
