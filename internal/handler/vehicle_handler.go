package handler

import (
	"io"
	"net/http"

	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/internal/service"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxDocumentSize caps uploaded document files at 10 MB.
const maxDocumentSize = 10 << 20

type VehicleHandler struct {
	vehicleService service.VehicleService
}

func NewVehicleHandler(vehicleService service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	citizen := middleware.RequireRole(model.RoleCitizen)
	officials := middleware.RequireRole(model.RoleGovernmentOfficial, model.RoleInspectionOfficer)
	anyRole := middleware.RequireRole(model.RoleCitizen, model.RoleInspectionOfficer, model.RoleGovernmentOfficial)
	{
		api.POST("/registerVehicleRequest", citizen, h.RegisterVehicle)
		api.POST("/uploadDocument", citizen, h.UploadDocument)
		api.POST("/submitAllDocuments", citizen, h.SubmitAllDocuments)
		api.GET("/transactions/pending", officials, h.ListPending)
		api.GET("/vehicles/user/:userId", anyRole, h.ListByOwner)
		api.GET("/vehicles/registered", anyRole, h.ListAllRegistered)
		api.GET("/vehicleById", anyRole, h.GetByID)
	}
}

// RegisterVehicle opens a draft vehicle record for the authenticated citizen
// @Summary      Register vehicle
// @Description  Creates a vehicle in draft state; documents must follow before submission
// @Tags         vehicles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterVehicleRequest  true  "Vehicle attributes"
// @Success      200      {object}  response.Response{data=service.VehicleResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/registerVehicleRequest [post]
func (h *VehicleHandler) RegisterVehicle(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.RegisterVehicle(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

// UploadDocument accepts a multipart file for a vehicle.
func (h *VehicleHandler) UploadDocument(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	vehicleID, err := uuid.Parse(c.PostForm("vehicleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vehicle id"))
		return
	}
	docType := c.PostForm("documentType")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Document file is required"))
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Document exceeds the 10MB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Could not read document file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Could not read document file"))
		return
	}

	doc, err := h.vehicleService.UploadDocument(
		c.Request.Context(), actorID, vehicleID,
		docType, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

type submitDocumentsRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
}

// SubmitAllDocuments finalizes a draft and queues it for approval.
func (h *VehicleHandler) SubmitAllDocuments(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req submitDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vehicle id"))
		return
	}

	vehicle, err := h.vehicleService.SubmitAllDocuments(c.Request.Context(), actorID, vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

// ListPending returns the registration queue for officials and officers.
func (h *VehicleHandler) ListPending(c *gin.Context) {
	vehicles, err := h.vehicleService.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicles))
}

func (h *VehicleHandler) ListByOwner(c *gin.Context) {
	ownerID, err := parseUUIDParam(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}
	vehicles, err := h.vehicleService.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicles))
}

func (h *VehicleHandler) ListAllRegistered(c *gin.Context) {
	vehicles, err := h.vehicleService.ListAllRegistered(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicles))
}

func (h *VehicleHandler) GetByID(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Query("vehicleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vehicle id"))
		return
	}
	vehicle, err := h.vehicleService.GetByID(c.Request.Context(), vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}
