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

type ChallanHandler struct {
	challanService service.ChallanService
}

func NewChallanHandler(challanService service.ChallanService) *ChallanHandler {
	return &ChallanHandler{challanService: challanService}
}

func (h *ChallanHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	officer := middleware.RequireRole(model.RoleInspectionOfficer)
	citizen := middleware.RequireRole(model.RoleCitizen)
	anyRole := middleware.RequireRole(model.RoleCitizen, model.RoleInspectionOfficer, model.RoleGovernmentOfficial)
	{
		api.POST("/createChallan", officer, h.CreateChallan)
		api.PUT("/payChallan", citizen, h.PayChallan)
		api.GET("/challan-details-byUserId", anyRole, h.ListByUser)
	}
}

// CreateChallan issues a standalone fee against a vehicle
// @Summary      Create challan
// @Tags         challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateChallanRequest  true  "Challan details"
// @Success      201      {object}  response.Response{data=service.ChallanResponse}
// @Router       /api/createChallan [post]
func (h *ChallanHandler) CreateChallan(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.CreateChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	challan, err := h.challanService.CreateChallan(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, challan))
}

type payChallanRequest struct {
	ChallanID string `json:"challanId" binding:"required"`
}

// PayChallan settles an unpaid challan. Payment is one-way.
func (h *ChallanHandler) PayChallan(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req payChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	challanID, err := uuid.Parse(req.ChallanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid challan id"))
		return
	}

	challan, err := h.challanService.MarkPaid(c.Request.Context(), actorID, challanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

func (h *ChallanHandler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}
	challans, err := h.challanService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challans))
}
