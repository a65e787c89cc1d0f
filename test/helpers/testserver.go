package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"blooddonation_backend/internal/app"
	"blooddonation_backend/internal/config"
	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var loggerOnce sync.Once

type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
	Email  *app.MockEmailProvider
	Config *config.Config
}

// NewTestServer поднимает приложение на sqlite. Уведомления доставляются синхронно,
// чтобы тесты видели их сразу после ответа.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	loggerOnce.Do(func() { logger.InitWithWriter("test", io.Discard) })

	cfg := config.NewTestConfig()
	cfg.Notifications.Async = false
	cfg.RateLimit.IPRPS = 1000
	cfg.RateLimit.IPBurst = 1000

	db := NewTestDB(t)
	mail := &app.MockEmailProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	router := app.SetupRouter(ctx, cfg, db, mail)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Email:  mail,
		Config: cfg,
	}
}

// SendRequest отправляет JSON-запрос и возвращает ответ с телом
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()
	url := ts.Server.URL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "Ошибка кодирования JSON для запроса")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err, "Ошибка создания HTTP-запроса")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err, "Ошибка отправки HTTP-запроса")
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	require.NoError(t, err, "Ошибка чтения тела ответа")

	return res, string(resBodyBytes)
}

// DecodeJSON разбирает тело ответа в out
func DecodeJSON(t *testing.T, body string, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), out), "Не удалось распарсить JSON: %s", body)
}

// Login возвращает токен пользователя, созданного хелперами
func (ts *TestServer) Login(t *testing.T, user *models.User) string {
	t.Helper()

	res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    user.Email,
		"password": DefaultPassword,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, "Логин должен быть успешным. Ответ: %s", body)

	var loginResponse struct {
		Token string `json:"access_token"`
	}
	DecodeJSON(t, body, &loginResponse)
	require.NotEmpty(t, loginResponse.Token, "Токен не должен быть пустым")
	return loginResponse.Token
}

// CreateAndLoginUser создает одобренного пользователя и логинит его
func (ts *TestServer) CreateAndLoginUser(t *testing.T, name string, role models.UserRole) (string, *models.User) {
	t.Helper()
	user := CreateUser(t, ts.DB, name, role)
	return ts.Login(t, user), user
}
