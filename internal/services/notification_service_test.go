package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/internal/workers"
	"blooddonation_backend/test/helpers"
	"blooddonation_backend/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", services.Preview("  short  ", 10))
	assert.Equal(t, "abc...", services.Preview("abcdef", 3))
	// по рунам, а не по байтам
	assert.Equal(t, "при...", services.Preview("привет", 3))
}

func TestAnnouncementTitle(t *testing.T) {
	assert.Equal(t, "🚨 Drive", services.AnnouncementTitle("Drive", models.PriorityUrgent))
	assert.Equal(t, "⚠️ Drive", services.AnnouncementTitle("Drive", models.PriorityHigh))
	assert.Equal(t, "Drive", services.AnnouncementTitle("Drive", models.PriorityNormal))
	assert.Equal(t, "Drive", services.AnnouncementTitle("Drive", models.PriorityLow))
}

func TestMilestones(t *testing.T) {
	for _, n := range []int{5, 10, 25, 50, 100} {
		assert.True(t, services.IsMilestone(n), n)
		title, message := services.MilestoneMessage(n)
		assert.NotEmpty(t, title)
		assert.NotEmpty(t, message)
	}
	for _, n := range []int{0, 1, 4, 6, 99, 101} {
		assert.False(t, services.IsMilestone(n), n)
	}
	title, _ := services.MilestoneMessage(10)
	assert.Contains(t, title, "10")
}

func TestPublishAnnouncement_Audience(t *testing.T) {
	f := newFixture(t, nil)
	admin := helpers.CreateAdmin(t, f.db, "Admin One")
	hospitalA, _ := helpers.CreateHospital(t, f.db, "City Hospital", "Almaty")
	hospitalB, _ := helpers.CreateHospital(t, f.db, "Field Clinic", "Astana")
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)
	pending := helpers.CreateUser(t, f.db, "Pending Clinic", models.UserRoleHospital)
	require.NoError(t, f.db.Model(pending).Update("status", models.UserStatusPending).Error)

	announcement, err := f.notification.PublishAnnouncement(context.Background(), f.db, admin.ID, &dto.CreateAnnouncementRequest{
		Title:          "Inventory check",
		Message:        "Please report O- stock.",
		TargetAudience: models.AudienceHospitals,
		Priority:       models.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, announcement.RecipientsCount)
	assert.Equal(t, admin.ID, announcement.CreatedBy)

	for _, u := range []*models.User{hospitalA, hospitalB} {
		events := f.pusher.For(u.ID, ws.EventNotification)
		require.Len(t, events, 1)
		n := events[0].Data.(*models.Notification)
		assert.True(t, strings.HasPrefix(n.Title, "⚠️ "))
	}
	assert.Empty(t, f.pusher.For(donor.ID, ws.EventNotification))
	assert.Empty(t, f.pusher.For(pending.ID, ws.EventNotification))
}

func TestDispatch_AsyncWorker(t *testing.T) {
	worker := workers.NewNotificationWorker(16, 1)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	t.Cleanup(func() {
		cancel()
		worker.Stop()
	})

	f := newFixture(t, worker)
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)

	f.notification.NotifyDonorApproved(context.Background(), f.db, donor.ID)

	require.Eventually(t, func() bool {
		count, err := f.notification.GetUnreadCount(f.db, donor.ID)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatch_FailureDoesNotPropagate(t *testing.T) {
	f := newFixture(t, nil)
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)
	require.NoError(t, f.db.Migrator().DropTable(&models.Notification{}))

	assert.NotPanics(t, func() {
		f.notification.NotifyDonorApproved(context.Background(), f.db, donor.ID)
	})
	assert.Empty(t, f.pusher.For(donor.ID, ws.EventNotification))
}

func TestNotificationInbox_Ownership(t *testing.T) {
	f := newFixture(t, nil)
	donor := helpers.CreateUser(t, f.db, "Donor Dan", models.UserRoleDonor)
	other := helpers.CreateSeeker(t, f.db, "Seeker Sam")

	f.notification.NotifyDonorApproved(context.Background(), f.db, donor.ID)
	list, err := f.notification.GetUserNotifications(f.db, donor.ID, dto.NotificationListQuery{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	id := list.Notifications[0].ID

	requireAppError(t, f.notification.MarkAsRead(f.db, other.ID, id), 404)
	require.NoError(t, f.notification.MarkAsRead(f.db, donor.ID, id))

	count, err := f.notification.GetUnreadCount(f.db, donor.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
