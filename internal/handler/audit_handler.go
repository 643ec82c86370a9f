package handler

import (
	"fmt"
	"net/http"
	"time"

	"securechain/internal/middleware"
	"securechain/internal/model"
	"securechain/internal/service"
	"securechain/pkg/pagination"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")

	official := middleware.RequireRole(model.RoleGovernmentOfficial)
	{
		api.GET("/audit-logs", official, h.GetAuditLogs)
		api.GET("/generateAllTransactionsPDF", official, h.GeneratePdf)
	}
}

// GetAuditLogs returns the paginated audit trail, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GeneratePdf streams the full audit trail as a PDF download.
func (h *AuditHandler) GeneratePdf(c *gin.Context) {
	pdf, err := h.auditService.GeneratePdf(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("transactions-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
