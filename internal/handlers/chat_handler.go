package handlers

import (
	"net/http"

	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	chatService services.ChatService
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		chatService: chatService,
	}
}

// RegisterRoutes - пути совпадают с прежними эндпоинтами фронтенда
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	chat := r.Group("/chat")
	chat.Use(g.Protected()...)
	{
		chat.GET("/check-permission.php", h.CheckPermission)
		chat.GET("/search-users.php", h.SearchUsers)
		chat.POST("/send-message.php", g.ChatRate, h.SendMessage)
		chat.GET("/get-messages.php", g.ChatRate, h.GetMessages)
		chat.POST("/mark-read.php", h.MarkRead)
		chat.GET("/unread-count.php", h.GetUnreadCount)
		chat.GET("/conversations.php", h.ListConversations)
	}
}

func (h *ChatHandler) CheckPermission(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.CheckPermissionQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	response, err := h.chatService.CheckPermission(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) SearchUsers(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.SearchUsersQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	response, err := h.chatService.SearchUsers(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": message,
	})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.GetMessagesQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	response, err := h.chatService.GetMessages(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.MarkReadRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.chatService.MarkRead(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	response, err := h.chatService.GetUnreadCount(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	response, err := h.chatService.ListConversations(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
