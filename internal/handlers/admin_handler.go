package handlers

import (
	"net/http"

	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// AdminHandler - модерация пользователей, заявок и добровольных сдач
type AdminHandler struct {
	*BaseHandler
	lifecycleService services.LifecycleService
}

func NewAdminHandler(base *BaseHandler, lifecycleService services.LifecycleService) *AdminHandler {
	return &AdminHandler{
		BaseHandler:      base,
		lifecycleService: lifecycleService,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	admin := r.Group("/admin")
	admin.Use(g.Admin()...)
	{
		admin.POST("/users/:id/approve", h.ApproveUser)
		admin.POST("/users/:id/reject", h.RejectUser)
		admin.POST("/donors/:id/restore-eligibility", h.RestoreEligibility)

		admin.POST("/requests/:id/approve", h.ApproveRequest)
		admin.POST("/requests/:id/reject", h.RejectRequest)
		admin.POST("/requests/:id/expire", h.ExpireRequest)

		admin.POST("/voluntary-donations/:id/approve", h.ApproveVoluntary)
		admin.POST("/voluntary-donations/:id/reject", h.RejectVoluntary)
		admin.POST("/voluntary-donations/:id/assign", h.AssignVoluntaryHospital)
		admin.POST("/voluntary-donations/:id/schedule", h.ScheduleVoluntary)
		admin.POST("/voluntary-donations/:id/remind", h.RemindVoluntary)
	}
}

// pathID - id из пути; при ошибке ответ уже отправлен
func (h *AdminHandler) pathID(c *gin.Context) (uint, bool) {
	id, err := ParseParamID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return 0, false
	}
	return id, true
}

// reason - необязательное тело {"reason": "..."}
func (h *AdminHandler) reason(c *gin.Context) (string, bool) {
	var req dto.ReasonRequest
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if !h.BindAndValidate_JSON(c, &req) {
		return "", false
	}
	return req.Reason, true
}

// --- Users ---

func (h *AdminHandler) ApproveUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	user, err := h.lifecycleService.ApproveUser(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *AdminHandler) RejectUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	user, err := h.lifecycleService.RejectUser(c.Request.Context(), h.GetDB(c), id, reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *AdminHandler) RestoreEligibility(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.lifecycleService.RestoreEligibility(c.Request.Context(), h.GetDB(c), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Requests ---

func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	request, err := h.lifecycleService.ApproveRequest(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

func (h *AdminHandler) RejectRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	request, err := h.lifecycleService.RejectRequest(c.Request.Context(), h.GetDB(c), id, reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

func (h *AdminHandler) ExpireRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	request, err := h.lifecycleService.ExpireRequest(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

// --- Voluntary donations ---

func (h *AdminHandler) ApproveVoluntary(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	v, err := h.lifecycleService.ApproveVoluntary(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voluntary_donation": v})
}

func (h *AdminHandler) RejectVoluntary(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	v, err := h.lifecycleService.RejectVoluntary(c.Request.Context(), h.GetDB(c), id, reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voluntary_donation": v})
}

func (h *AdminHandler) AssignVoluntaryHospital(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.AssignHospitalRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	v, err := h.lifecycleService.AssignVoluntaryHospital(c.Request.Context(), h.GetDB(c), id, req.HospitalUserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voluntary_donation": v})
}

func (h *AdminHandler) ScheduleVoluntary(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	v, err := h.lifecycleService.ScheduleVoluntary(c.Request.Context(), h.GetDB(c), id, req.ScheduledAt)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voluntary_donation": v})
}

func (h *AdminHandler) RemindVoluntary(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	v, err := h.lifecycleService.RemindVoluntary(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voluntary_donation": v})
}
