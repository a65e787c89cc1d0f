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

// TestAuthFlow - регистрация, ожидание одобрения и доступ после него
func TestAuthFlow(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	adminToken, admin := ts.CreateAndLoginUser(t, "Admin One", models.UserRoleAdmin)

	registerBody := map[string]interface{}{
		"name":       "Donor Dana",
		"email":      "dana@test.com",
		"password":   "super_password123",
		"role":       "donor",
		"city":       "Almaty",
		"blood_type": "O+",
	}
	regRes, regBody := ts.SendRequest(t, http.MethodPost, "/api/auth/register", "", registerBody)
	require.Equal(t, http.StatusCreated, regRes.StatusCode, "Ответ: %s", regBody)
	assert.Contains(t, regBody, "waiting for administrator approval")

	var registered struct {
		User models.User `json:"user"`
	}
	helpers.DecodeJSON(t, regBody, &registered)
	assert.Equal(t, models.UserStatusPending, registered.User.Status)

	// Админ получил уведомление о новом доноре
	assert.Equal(t, int64(1), countNotifications(t, ts, admin.ID, services.TypeNewRegistration))

	// Логин разрешен, /auth/me показывает статус
	logRes, logBody := ts.SendRequest(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    "dana@test.com",
		"password": "super_password123",
	})
	require.Equal(t, http.StatusOK, logRes.StatusCode, "Ответ: %s", logBody)
	var login struct {
		Token string `json:"access_token"`
	}
	helpers.DecodeJSON(t, logBody, &login)

	meRes, meBody := ts.SendRequest(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusOK, meRes.StatusCode)
	assert.Contains(t, meBody, `"status":"pending"`)
	assert.Contains(t, meBody, `"blood_type":"O+"`)

	// Чат закрыт до одобрения
	chatRes, chatBody := ts.SendRequest(t, http.MethodGet, "/api/chat/unread-count.php", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, chatRes.StatusCode)
	assert.Contains(t, chatBody, "ACCOUNT_NOT_APPROVED")

	// Одобрение админом
	approveRes, approveBody := ts.SendRequest(t, http.MethodPost,
		fmt.Sprintf("/api/admin/users/%d/approve", registered.User.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, approveRes.StatusCode, "Ответ: %s", approveBody)
	assert.Equal(t, int64(1), countNotifications(t, ts, registered.User.ID, services.TypeAccountApproved))

	chatRes, _ = ts.SendRequest(t, http.MethodGet, "/api/chat/unread-count.php", login.Token, nil)
	assert.Equal(t, http.StatusOK, chatRes.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)

	t.Run("admin role is not allowed", func(t *testing.T) {
		res, _ := ts.SendRequest(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
			"name":     "Mallory",
			"email":    "mallory@test.com",
			"password": "password123",
			"role":     "admin",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("donor needs blood type", func(t *testing.T) {
		res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
			"name":     "No Blood",
			"email":    "noblood@test.com",
			"password": "password123",
			"role":     "donor",
			"city":     "Almaty",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Contains(t, body, "blood_type")
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Seeker Sam",
			"email":    "sam@test.com",
			"password": "password123",
			"role":     "seeker",
		}
		res, _ := ts.SendRequest(t, http.MethodPost, "/api/auth/register", "", body)
		require.Equal(t, http.StatusCreated, res.StatusCode)

		res, _ = ts.SendRequest(t, http.MethodPost, "/api/auth/register", "", body)
		assert.Equal(t, http.StatusConflict, res.StatusCode)
	})
}

func TestLogin_BadPassword(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)
	user := helpers.CreateSeeker(t, ts.DB, "Seeker Sue")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    user.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, body, "INVALID_CREDENTIALS")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	t.Parallel()

	ts := helpers.NewTestServer(t)

	for _, path := range []string{
		"/api/chat/unread-count.php",
		"/api/notifications",
		"/api/auth/me",
	} {
		res, _ := ts.SendRequest(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
	}

	res, _ := ts.SendRequest(t, http.MethodGet, "/api/notifications", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
