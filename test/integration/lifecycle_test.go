package integration_test

import (
	"fmt"
	"net/http"
	"testing"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDonationScenario - заявка от ищущего, одобрение, отклик донора, завершение
// и то, как меняются права на переписку по ходу процесса.
func TestDonationScenario(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, admin := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)
	seekerToken, seeker := ts.CreateAndLoginUser(t, "Seeker Sam", models.UserRoleSeeker)
	donorUser, profile := helpers.CreateDonor(t, ts.DB, "Donor Dan", "B+", "Almaty")
	donorToken := ts.Login(t, donorUser)
	hospitalUser, hospital := helpers.CreateHospital(t, ts.DB, "City Hospital", "Almaty")
	hospitalToken := ts.Login(t, hospitalUser)
	// донор с другой группой крови не должен получить рассылку
	otherDonor, _ := helpers.CreateDonor(t, ts.DB, "Donor Oleg", "O-", "Almaty")

	// 1. Ищущий создает заявку
	res, body := ts.SendRequest(t, http.MethodPost, "/api/requests", seekerToken, map[string]interface{}{
		"patient_name": "Patient P",
		"blood_type":   "B+",
		"units_needed": 1,
		"urgency":      "urgent",
		"city":         "Almaty",
		"hospital_id":  hospital.ID,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "Ответ: %s", body)
	var created struct {
		Request models.BloodRequest `json:"request"`
	}
	helpers.DecodeJSON(t, body, &created)
	request := created.Request
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, int64(1), countNotifications(t, ts, admin.ID, services.TypeNewRequest))

	// Донор еще не участник: контекст заявки его не пускает
	perm := checkPermission(t, ts, donorToken, seeker.ID, fmt.Sprintf("&request_id=%d", request.ID))
	assert.False(t, perm.CanChat)
	assert.Equal(t, "REQUEST_INACTIVE", perm.Code)

	// Откликнуться на неодобренную заявку нельзя
	res, _ = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/accept", request.ID), donorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// 2. Админ одобряет
	res, body = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%d/approve", request.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "Ответ: %s", body)
	assert.Equal(t, int64(1), countNotifications(t, ts, donorUser.ID, services.TypeMatchingRequest))
	assert.Zero(t, countNotifications(t, ts, otherDonor.ID, services.TypeMatchingRequest))

	// 3. Донор откликается
	res, body = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/accept", request.ID), donorToken, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, "Ответ: %s", body)
	var accepted struct {
		Donation models.Donation `json:"donation"`
	}
	helpers.DecodeJSON(t, body, &accepted)
	donation := accepted.Donation
	assert.Equal(t, models.DonationStatusAccepted, donation.Status)
	assert.Equal(t, profile.ID, donation.DonorID)
	assert.Equal(t, int64(1), countNotifications(t, ts, hospitalUser.ID, services.TypeDonationAccepted))

	// Повторный отклик - конфликт
	res, _ = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/accept", request.ID), donorToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// Теперь оба - участники активной заявки
	perm = checkPermission(t, ts, donorToken, seeker.ID, fmt.Sprintf("&request_id=%d", request.ID))
	assert.True(t, perm.CanChat)
	assert.Equal(t, "ALLOWED_REQUEST", perm.Code)

	perm = checkPermission(t, ts, donorToken, hospitalUser.ID, fmt.Sprintf("&donation_id=%d", donation.ID))
	assert.True(t, perm.CanChat)
	assert.Equal(t, "ALLOWED_DONATION", perm.Code)

	// 4. Донор в пути, на месте; больница завершает
	for _, step := range []struct {
		token  string
		status models.DonationStatus
	}{
		{donorToken, models.DonationStatusOnTheWay},
		{donorToken, models.DonationStatusReached},
		{hospitalToken, models.DonationStatusCompleted},
	} {
		res, body = ts.SendRequest(t, http.MethodPut, fmt.Sprintf("/api/donations/%d/status", donation.ID), step.token,
			map[string]interface{}{"status": step.status})
		require.Equal(t, http.StatusOK, res.StatusCode, "%s: %s", step.status, body)
	}

	// Назад по цепочке нельзя
	res, _ = ts.SendRequest(t, http.MethodPut, fmt.Sprintf("/api/donations/%d/status", donation.ID), donorToken,
		map[string]interface{}{"status": "on_the_way"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// Заявка закрыта, у донора обновлены счетчик и срок следующей сдачи
	var stored models.BloodRequest
	require.NoError(t, ts.DB.First(&stored, request.ID).Error)
	assert.Equal(t, models.RequestStatusCompleted, stored.Status)

	var donorProfile models.DonorProfile
	require.NoError(t, ts.DB.First(&donorProfile, profile.ID).Error)
	assert.Equal(t, 1, donorProfile.TotalDonations)
	require.NotNil(t, donorProfile.NextEligibleDate)
	assert.Equal(t, int64(1), countNotifications(t, ts, donorUser.ID, services.TypeDonationCompleted))
	assert.Zero(t, countNotifications(t, ts, donorUser.ID, services.TypeAchievement), "первая сдача - не рубеж")
	assert.Equal(t, int64(1), countNotifications(t, ts, seeker.ID, services.TypeRequestFulfilled))
	assert.Equal(t, int64(1), countNotifications(t, ts, admin.ID, services.TypeDonationCompleted))

	// 5. Завершенная донация больше не дает права на переписку
	perm = checkPermission(t, ts, donorToken, hospitalUser.ID, fmt.Sprintf("&donation_id=%d", donation.ID))
	assert.False(t, perm.CanChat)
	assert.Equal(t, "DONATION_INACTIVE", perm.Code)

	res, body = sendMessage(t, ts, donorToken, map[string]interface{}{
		"receiver_id": hospitalUser.ID,
		"message":     "thanks",
		"donation_id": donation.ID,
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Contains(t, body, "DONATION_INACTIVE")

	// Без контекста разные роли по-прежнему могут писать друг другу
	perm = checkPermission(t, ts, donorToken, hospitalUser.ID, "")
	assert.True(t, perm.CanChat)
	assert.Equal(t, "ALLOWED_CROSS_ROLE", perm.Code)
}

func TestCheckPermission_Rules(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, admin := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)
	_, admin2 := ts.CreateAndLoginUser(t, "Admin Two", models.UserRoleAdmin)
	donorToken, donor := ts.CreateAndLoginUser(t, "Donor Dan", models.UserRoleDonor)
	_, otherDonor := ts.CreateAndLoginUser(t, "Donor Dora", models.UserRoleDonor)
	seeker := helpers.CreateSeeker(t, ts.DB, "Seeker Sam")
	hospitalUser, hospital := helpers.CreateHospital(t, ts.DB, "City Hospital", "Almaty")
	request := helpers.CreateRequest(t, ts.DB, seeker, hospital, "A+", models.RequestStatusApproved)
	otherHospitalUser, _ := helpers.CreateHospital(t, ts.DB, "Field Clinic", "Astana")

	tests := []struct {
		name    string
		token   string
		target  uint
		query   string
		canChat bool
		code    string
	}{
		{"self", donorToken, donor.ID, "", false, "SELF_CHAT_NOT_ALLOWED"},
		{"admin to admin", adminToken, admin2.ID, "", false, "ADMIN_TO_ADMIN_BLOCKED"},
		{"same role", donorToken, otherDonor.ID, "", false, "SAME_ROLE_PROHIBITED"},
		{"admin override", adminToken, donor.ID, "&request_id=999999", true, "ADMIN_OVERRIDE"},
		{"chat with admin", donorToken, admin.ID, "", true, "CHAT_WITH_ADMIN"},
		{"cross role", donorToken, hospitalUser.ID, "", true, "ALLOWED_CROSS_ROLE"},
		{"not involved", donorToken, otherHospitalUser.ID, fmt.Sprintf("&request_id=%d", request.ID), false, "NOT_INVOLVED_IN_REQUEST"},
		{"request missing", donorToken, hospitalUser.ID, "&request_id=999999", false, "REQUEST_NOT_FOUND"},
		{"donation missing", donorToken, hospitalUser.ID, "&donation_id=999999", false, "DONATION_NOT_FOUND"},
		{"voluntary missing", donorToken, hospitalUser.ID, "&voluntary_donation_id=999999", false, "VOLUNTARY_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perm := checkPermission(t, ts, tt.token, tt.target, tt.query)
			assert.True(t, perm.Success)
			assert.Equal(t, tt.canChat, perm.CanChat)
			assert.Equal(t, tt.code, perm.Code)
			assert.NotEmpty(t, perm.Reason)
		})
	}

	res, _ := ts.SendRequest(t, http.MethodGet, "/api/chat/check-permission.php?target_user_id=999999", donorToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestVoluntaryDonationFlow(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, _ := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)
	donorUser, _ := helpers.CreateDonor(t, ts.DB, "Donor Dan", "A-", "Almaty")
	donorToken := ts.Login(t, donorUser)
	hospitalUser, _ := helpers.CreateHospital(t, ts.DB, "City Hospital", "Almaty")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/voluntary-donations", donorToken, map[string]interface{}{
		"city": "Almaty",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "Ответ: %s", body)
	var submitted struct {
		Voluntary models.VoluntaryDonation `json:"voluntary_donation"`
	}
	helpers.DecodeJSON(t, body, &submitted)
	id := submitted.Voluntary.ID
	assert.Equal(t, models.VoluntaryStatusPending, submitted.Voluntary.Status)
	assert.Equal(t, models.BloodType("A-"), submitted.Voluntary.BloodType, "группа крови из профиля")

	// Без больницы у донора нет собеседника в этом контексте
	perm := checkPermission(t, ts, donorToken, hospitalUser.ID, fmt.Sprintf("&voluntary_donation_id=%d", id))
	assert.False(t, perm.CanChat)

	steps := []struct {
		path string
		body map[string]interface{}
	}{
		{fmt.Sprintf("/api/admin/voluntary-donations/%d/approve", id), nil},
		{fmt.Sprintf("/api/admin/voluntary-donations/%d/assign", id), map[string]interface{}{"hospital_user_id": hospitalUser.ID}},
		{fmt.Sprintf("/api/admin/voluntary-donations/%d/schedule", id), map[string]interface{}{"scheduled_at": "2030-01-02T10:00:00Z"}},
		{fmt.Sprintf("/api/admin/voluntary-donations/%d/remind", id), nil},
	}
	for _, step := range steps {
		res, body := ts.SendRequest(t, http.MethodPost, step.path, adminToken, step.body)
		require.Equal(t, http.StatusOK, res.StatusCode, "%s: %s", step.path, body)
	}

	assert.Equal(t, int64(1), countNotifications(t, ts, donorUser.ID, services.TypeHospitalAssigned))
	assert.Equal(t, int64(1), countNotifications(t, ts, donorUser.ID, services.TypeAppointment))
	assert.Equal(t, int64(1), countNotifications(t, ts, donorUser.ID, services.TypeReminder))

	perm = checkPermission(t, ts, donorToken, hospitalUser.ID, fmt.Sprintf("&voluntary_donation_id=%d", id))
	assert.True(t, perm.CanChat)
	assert.Equal(t, "ALLOWED_VOLUNTARY", perm.Code)

	// Только админ управляет добровольными сдачами
	res, _ = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/admin/voluntary-donations/%d/remind", id), donorToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestCancelRequest(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	seekerToken, seeker := ts.CreateAndLoginUser(t, "Seeker Sam", models.UserRoleSeeker)
	otherToken, _ := ts.CreateAndLoginUser(t, "Seeker Sue", models.UserRoleSeeker)
	request := helpers.CreateRequest(t, ts.DB, seeker, nil, "O+", models.RequestStatusApproved)

	res, _ := ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/cancel", request.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body := ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/cancel", request.ID), seekerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "Ответ: %s", body)
	assert.Contains(t, body, `"status":"cancelled"`)

	res, _ = ts.SendRequest(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/cancel", request.ID), seekerToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "отмененную заявку нельзя отменить повторно")
}
