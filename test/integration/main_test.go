package integration_test

import (
	"fmt"
	"net/http"
	"testing"

	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/services/dto"
	"blooddonation_backend/test/helpers"

	"github.com/stretchr/testify/require"
)

// errorBody - общий конверт ошибки
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// checkPermission вызывает check-permission.php; query - уже собранные параметры контекста
func checkPermission(t *testing.T, ts *helpers.TestServer, token string, targetID uint, query string) dto.PermissionResponse {
	t.Helper()
	path := fmt.Sprintf("/api/chat/check-permission.php?target_user_id=%d%s", targetID, query)
	res, body := ts.SendRequest(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "Ответ: %s", body)

	var out dto.PermissionResponse
	helpers.DecodeJSON(t, body, &out)
	return out
}

func sendMessage(t *testing.T, ts *helpers.TestServer, token string, body map[string]interface{}) (*http.Response, string) {
	t.Helper()
	return ts.SendRequest(t, http.MethodPost, "/api/chat/send-message.php", token, body)
}

func countNotifications(t *testing.T, ts *helpers.TestServer, userID uint, typ string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, ts.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Count(&count).Error)
	return count
}
