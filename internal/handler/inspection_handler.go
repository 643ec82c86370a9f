package handler

import (
	"net/http"

	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/internal/service"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InspectionHandler struct {
	inspectionService service.InspectionService
}

func NewInspectionHandler(inspectionService service.InspectionService) *InspectionHandler {
	return &InspectionHandler{inspectionService: inspectionService}
}

func (h *InspectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	requesters := middleware.RequireRole(model.RoleGovernmentOfficial, model.RoleCitizen)
	officer := middleware.RequireRole(model.RoleInspectionOfficer)
	{
		api.POST("/send-inspection-request", requesters, h.CreateRequest)
		api.GET("/fetch-inspection-request-byOfficialID", officer, h.ListByOfficer)
		api.PUT("/approveInspection", officer, h.Approve)
		api.PUT("/rejectInspection", officer, h.Reject)
	}
}

// CreateRequest books an inspection appointment for a submitted vehicle
// @Summary      Request inspection
// @Description  Assigns an officer and appointment date to a pending vehicle
// @Tags         inspections
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInspectionRequest  true  "Inspection booking"
// @Success      201      {object}  response.Response{data=service.InspectionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/send-inspection-request [post]
func (h *InspectionHandler) CreateRequest(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.inspectionService.CreateRequest(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListByOfficer returns the officer's worklist split into pending and decided.
func (h *InspectionHandler) ListByOfficer(c *gin.Context) {
	officerID, err := uuid.Parse(c.Query("officerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid officer id"))
		return
	}

	// Officers may only pull their own queue.
	if actorID, ok := middleware.CurrentUserID(c); !ok || actorID != officerID {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Officers may only view their own worklist"))
		return
	}

	worklist, err := h.inspectionService.ListByOfficer(c.Request.Context(), officerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, worklist))
}

func (h *InspectionHandler) Approve(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.ApproveInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.inspectionService.Approve(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *InspectionHandler) Reject(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.RejectInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.inspectionService.Reject(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
