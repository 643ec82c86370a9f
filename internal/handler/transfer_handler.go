package handler

import (
	"net/http"

	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/internal/service"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	transferService service.TransferService
}

func NewTransferHandler(transferService service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	citizen := middleware.RequireRole(model.RoleCitizen)
	official := middleware.RequireRole(model.RoleGovernmentOfficial)
	{
		api.POST("/transferOwnership", citizen, h.InitiateTransfer)
		api.GET("/transactions/pendingtransfers", official, h.ListPending)
		api.POST("/approveTransfer", official, h.Approve)
		api.POST("/rejectTransfer", official, h.Reject)
	}
}

// InitiateTransfer opens a transfer to the buyer identified by CNIC
// @Summary      Initiate ownership transfer
// @Tags         transfers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InitiateTransferRequest  true  "Transfer details"
// @Success      201      {object}  response.Response{data=service.TransferResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/transferOwnership [post]
func (h *TransferHandler) InitiateTransfer(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.InitiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	transfer, err := h.transferService.InitiateTransfer(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, transfer))
}

func (h *TransferHandler) ListPending(c *gin.Context) {
	transfers, err := h.transferService.ListPendingTransfers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transfers))
}

func (h *TransferHandler) Approve(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.ApproveTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	transfer, err := h.transferService.Approve(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transfer))
}

func (h *TransferHandler) Reject(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.RejectTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	transfer, err := h.transferService.Reject(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transfer))
}
