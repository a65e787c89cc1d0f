package integration_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	seekerToken, _ := ts.CreateAndLoginUser(t, "Seeker Sam", models.UserRoleSeeker)
	donorToken, donor := ts.CreateAndLoginUser(t, "Donor Dan", models.UserRoleDonor)

	for i := 0; i < 3; i++ {
		res, _ := sendMessage(t, ts, seekerToken, map[string]interface{}{
			"receiver_id": donor.ID,
			"message":     fmt.Sprintf("m%d", i),
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	list := func(query string) dto.NotificationListResponse {
		res, body := ts.SendRequest(t, http.MethodGet, "/api/notifications"+query, donorToken, nil)
		require.Equal(t, http.StatusOK, res.StatusCode, "Ответ: %s", body)
		var out dto.NotificationListResponse
		helpers.DecodeJSON(t, body, &out)
		return out
	}

	inbox := list("")
	require.Len(t, inbox.Notifications, 3)
	assert.Equal(t, int64(3), inbox.Total)
	assert.Equal(t, int64(3), inbox.UnreadCount)
	assert.Equal(t, services.TypeChatMessage, inbox.Notifications[0].Type)
	assert.Contains(t, inbox.Notifications[0].Title, "Seeker Sam")

	// Чужое уведомление прочитать нельзя
	res, _ := ts.SendRequest(t, http.MethodPut,
		fmt.Sprintf("/api/notifications/%d/read", inbox.Notifications[0].ID), seekerToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = ts.SendRequest(t, http.MethodPut,
		fmt.Sprintf("/api/notifications/%d/read", inbox.Notifications[0].ID), donorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	assert.Len(t, list("?unread_only=true").Notifications, 2)

	res, body := ts.SendRequest(t, http.MethodPut, "/api/notifications/read-all", donorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"marked_count":2`)

	res, body = ts.SendRequest(t, http.MethodGet, "/api/notifications/unread-count", donorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"unread_count":0`)
}

func TestPublishAnnouncement(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, admin := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)
	donorToken, donor := ts.CreateAndLoginUser(t, "Donor Dan", models.UserRoleDonor)
	_, otherDonor := ts.CreateAndLoginUser(t, "Donor Dora", models.UserRoleDonor)
	seeker := helpers.CreateSeeker(t, ts.DB, "Seeker Sam")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/admin/announcements", adminToken, map[string]interface{}{
		"title":           "Blood drive",
		"message":         "We need O- donors this weekend.",
		"target_audience": "donors",
		"priority":        "urgent",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "Ответ: %s", body)

	var out dto.AnnouncementResponse
	helpers.DecodeJSON(t, body, &out)
	assert.Equal(t, 2, out.Announcement.RecipientsCount)

	var n models.Notification
	require.NoError(t, ts.DB.Where("user_id = ? AND type = ?", donor.ID, services.TypeAnnouncement).First(&n).Error)
	assert.True(t, strings.HasPrefix(n.Title, "🚨 "), n.Title)
	assert.Equal(t, int64(1), countNotifications(t, ts, otherDonor.ID, services.TypeAnnouncement))
	assert.Zero(t, countNotifications(t, ts, seeker.ID, services.TypeAnnouncement))
	assert.Zero(t, countNotifications(t, ts, admin.ID, services.TypeAnnouncement))

	// Срочное объявление дублируется письмом
	sent := ts.Email.Sent()
	require.NotEmpty(t, sent)
	assert.ElementsMatch(t, []string{donor.Email, otherDonor.Email}, sent[len(sent)-1].Bcc)

	// Публиковать может только админ
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/admin/announcements", donorToken, map[string]interface{}{
		"title":           "Hi",
		"message":         "Hi",
		"target_audience": "all",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/admin/announcements", adminToken, map[string]interface{}{
		"title":           "Hi",
		"message":         "Hi",
		"target_audience": "everyone",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestEmergencyRequest_EmailsMatchingDonors(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, _ := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)
	hospitalUser, _ := helpers.CreateHospital(t, ts.DB, "City Hospital", "Almaty")
	hospitalToken := ts.Login(t, hospitalUser)
	match, _ := helpers.CreateDonor(t, ts.DB, "Donor Dan", "AB-", "Almaty")
	helpers.CreateDonor(t, ts.DB, "Donor Far", "AB-", "Astana")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/requests", hospitalToken, map[string]interface{}{
		"blood_type":   "AB-",
		"units_needed": 2,
		"urgency":      "emergency",
		"city":         "Almaty",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "Ответ: %s", body)
	var created struct {
		Request models.BloodRequest `json:"request"`
	}
	helpers.DecodeJSON(t, body, &created)
	require.NotNil(t, created.Request.HospitalID, "заявка больницы привязана к ней самой")

	res, body = ts.SendRequest(t, http.MethodPost,
		fmt.Sprintf("/api/admin/requests/%d/approve", created.Request.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "Ответ: %s", body)

	assert.Equal(t, int64(1), countNotifications(t, ts, match.ID, services.TypeEmergencyMatch))

	sent := ts.Email.Sent()
	require.NotEmpty(t, sent)
	assert.Equal(t, []string{match.Email}, sent[len(sent)-1].Bcc)
}
