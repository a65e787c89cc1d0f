package handlers

import (
	"net/http"

	"blooddonation_backend/internal/middleware"
	"blooddonation_backend/internal/models"
	"blooddonation_backend/internal/services"
	"blooddonation_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// DonationHandler - заявки на кровь, донации и добровольные сдачи
type DonationHandler struct {
	*BaseHandler
	lifecycleService services.LifecycleService
}

func NewDonationHandler(base *BaseHandler, lifecycleService services.LifecycleService) *DonationHandler {
	return &DonationHandler{
		BaseHandler:      base,
		lifecycleService: lifecycleService,
	}
}

func (h *DonationHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	requests := r.Group("/requests")
	requests.Use(g.Protected()...)
	{
		requests.POST("", middleware.RequireRoles(models.UserRoleSeeker, models.UserRoleHospital), h.CreateRequest)
		requests.GET("/:requestId", h.GetRequest)
		requests.POST("/:requestId/cancel", h.CancelRequest)
		requests.POST("/:requestId/accept", middleware.RequireRoles(models.UserRoleDonor), h.AcceptRequest)
	}

	donations := r.Group("/donations")
	donations.Use(g.Protected()...)
	{
		donations.PUT("/:donationId/status", h.UpdateDonationStatus)
	}

	voluntary := r.Group("/voluntary-donations")
	voluntary.Use(g.Protected()...)
	voluntary.Use(middleware.RequireRoles(models.UserRoleDonor))
	{
		voluntary.POST("", h.SubmitVoluntary)
	}
}

func (h *DonationHandler) actor(c *gin.Context) (services.Actor, bool) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: h.GetRole(c)}, true
}

func (h *DonationHandler) CreateRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	request, err := h.lifecycleService.CreateRequest(c.Request.Context(), h.GetDB(c), actor, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "request": request})
}

func (h *DonationHandler) GetRequest(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}
	requestID, err := ParseParamID(c, "requestId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	request, err := h.lifecycleService.GetRequest(h.GetDB(c), requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

func (h *DonationHandler) CancelRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	requestID, err := ParseParamID(c, "requestId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	request, err := h.lifecycleService.CancelRequest(c.Request.Context(), h.GetDB(c), actor, requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}

func (h *DonationHandler) AcceptRequest(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	requestID, err := ParseParamID(c, "requestId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	donation, err := h.lifecycleService.AcceptRequest(c.Request.Context(), h.GetDB(c), userID, requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "donation": donation})
}

func (h *DonationHandler) UpdateDonationStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	donationID, err := ParseParamID(c, "donationId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req dto.DonationStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	donation, err := h.lifecycleService.UpdateDonationStatus(c.Request.Context(), h.GetDB(c), actor, donationID, req.Status)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "donation": donation})
}

func (h *DonationHandler) SubmitVoluntary(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitVoluntaryRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	v, err := h.lifecycleService.SubmitVoluntary(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "voluntary_donation": v})
}
