package handler

import (
	"net/http"

	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/internal/service"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		// Signup OTP flow
		api.POST("/send-Regotp", h.SendSignupOtp)
		api.POST("/verify-Regotp", h.VerifySignupOtp)
		api.POST("/user", h.Signup)

		// Login
		api.POST("/login", h.Login)

		// Password reset OTP flow
		api.POST("/send-otp", h.SendResetOtp)
		api.POST("/verify-otp", h.VerifyResetOtp)
		api.PUT("/update-password", h.ResetPassword)

		// Profile (any authenticated role)
		anyRole := middleware.RequireRole(model.RoleCitizen, model.RoleInspectionOfficer, model.RoleGovernmentOfficial)
		api.GET("/user/:id", anyRole, h.GetProfile)
		api.PUT("/updateUser", anyRole, h.UpdateProfile)
		api.GET("/fetch-all-inspection-officers", anyRole, h.ListInspectionOfficers)
	}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Otp   string `json:"otp" binding:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *AuthHandler) SendSignupOtp(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.SendSignupOtp(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "OTP sent"}))
}

func (h *AuthHandler) VerifySignupOtp(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.VerifySignupOtp(c.Request.Context(), req.Email, req.Otp); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "OTP verified"}))
}

// Signup creates the account once the email is OTP-verified
// @Summary      Sign up
// @Description  Creates a user after OTP verification and returns a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SignupRequest  true  "Signup Payload"
// @Success      201      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/user [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	result, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// Login authenticates by email and password
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}
	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *AuthHandler) SendResetOtp(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.SendResetOtp(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "OTP sent"}))
}

func (h *AuthHandler) VerifyResetOtp(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.VerifyResetOtp(c.Request.Context(), req.Email, req.Otp); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "OTP verified"}))
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "Password updated"}))
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}
	user, err := h.authService.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateProfile edits the authenticated user's own profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *AuthHandler) ListInspectionOfficers(c *gin.Context) {
	officers, err := h.authService.ListInspectionOfficers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, officers))
}
