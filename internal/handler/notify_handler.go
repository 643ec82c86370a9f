package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"securechain/internal/mailer"
	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NotifyHandler exposes the ad-hoc email endpoint used by officials to reach
// vehicle owners outside the automated workflow notifications.
type NotifyHandler struct {
	mail mailer.Mailer
}

func NewNotifyHandler(mail mailer.Mailer) *NotifyHandler {
	return &NotifyHandler{mail: mail}
}

func (h *NotifyHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	senders := middleware.RequireRole(model.RoleGovernmentOfficial, model.RoleInspectionOfficer)
	{
		api.POST("/send-email", senders, h.SendEmail)
	}
}

type sendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	// Either a prose body or a structured data block; data is what the
	// dashboard posts after workflow decisions.
	Body string            `json:"body"`
	Data map[string]string `json:"data"`
}

func (r sendEmailRequest) renderBody() string {
	if r.Body != "" {
		return r.Body
	}
	if user, ok := r.Data["user"]; ok {
		return fmt.Sprintf("Dear %s,\n\nYour %s request for vehicle %s has been %s.\n\nRegards,\nSecureChain Vehicle Registration",
			user, r.Data["action"], r.Data["vehicle"], r.Data["status"])
	}

	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, r.Data[k])
	}
	return b.String()
}

func (h *NotifyHandler) SendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if req.Body == "" && len(req.Data) == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Either body or data is required"))
		return
	}

	if err := h.mail.Send(req.To, req.Subject, req.renderBody()); err != nil {
		logrus.WithError(err).WithField("to", req.To).Warn("manual email delivery failed")
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "Email could not be delivered"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"msg": "Email sent"}))
}
