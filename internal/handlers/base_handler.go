package handlers

import (
	"strconv"

	"blooddonation_backend/internal/logger"
	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/validator"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BaseHandler - общие методы для всех хэндлеров
type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{validator: v}
}

// GetDB - *gorm.DB из DBMiddleware. Без него приложение собрано неверно.
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	db, ok := c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
	if !ok || db == nil {
		panic("handlers: DBMiddleware is not installed")
	}
	return db
}

// ============================================================================
// Привязка и валидация
// ============================================================================

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	return h.bindAndValidate(c, obj, c.ShouldBindJSON(obj), "Invalid request body")
}

func (h *BaseHandler) BindAndValidate_Query(c *gin.Context, obj interface{}) bool {
	return h.bindAndValidate(c, obj, c.ShouldBindQuery(obj), "Invalid query parameters")
}

func (h *BaseHandler) bindAndValidate(c *gin.Context, obj interface{}, bindErr error, bindMsg string) bool {
	ctx := c.Request.Context()
	if bindErr != nil {
		logger.CtxWarn(ctx, bindMsg, "error", bindErr.Error(), "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError(bindMsg+": "+bindErr.Error()))
		return false
	}

	err := h.validator.Validate(obj)
	if err == nil {
		return true
	}
	if vErr, ok := err.(*validator.ValidationError); ok {
		logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		return false
	}
	apperrors.HandleError(c, apperrors.InternalError(err))
	return false
}

// HandleServiceError - 4xx пишем предупреждением, 5xx логирует apperrors
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.InternalError(err)
	}
	if !appErr.IsServerError() {
		logger.CtxWarn(c.Request.Context(), "Request rejected",
			"code", appErr.Code,
			"error", appErr.Message,
			"path", c.Request.URL.Path,
		)
	}
	apperrors.HandleError(c, appErr)
}

// ============================================================================
// Пользователь из контекста
// ============================================================================

// GetAndAuthorizeUserID - id из токена; при его отсутствии ответ 401 уже отправлен
func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (uint, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		logger.CtxWarn(c.Request.Context(), "Unauthorized access: no user in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return 0, false
	}
	return userID, true
}

func (h *BaseHandler) GetRole(c *gin.Context) models.UserRole {
	return middleware.GetRole(c)
}

// ============================================================================
// Парсинг параметров
// ============================================================================

// ParseParamID - положительный числовой идентификатор из пути
func ParseParamID(c *gin.Context, key string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || value == 0 {
		return 0, apperrors.NewBadRequestError("Invalid path parameter: " + key)
	}
	return uint(value), nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ParsePagination - page с 1, page_size в пределах [1, 100]; мусор заменяется значением по умолчанию
func ParsePagination(c *gin.Context) (page int, pageSize int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(c, "page_size", defaultPageSize)
	switch {
	case pageSize < 1:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}
