package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/middleware"
	"opsconsole/internal/service"
	"opsconsole/pkg/pagination"
	"opsconsole/pkg/response"
)

type AuditHandler struct {
	auditService  service.AuditService
	approverRoles []string
}

func NewAuditHandler(auditService service.AuditService, approverRoles []string) *AuditHandler {
	return &AuditHandler{auditService: auditService, approverRoles: approverRoles}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole(h.approverRoles...))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated records with the acting user preloaded
// @Summary      Get audit logs
// @Description  Submission, decision and sync history, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        entity_kind  query     string  false  "Filter by kind"  Enums(account, customer, product, pricelist)
// @Param        entity_id    query     string  false  "Filter by record ID"
// @Success      200          {object}  response.Response{data=[]model.AuditLog}
// @Failure      403          {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.ListAuditLogs(c.Request.Context(), service.AuditFilter{
		EntityKind: c.Query("entity_kind"),
		EntityID:   c.Query("entity_id"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, "Audit logs", logs, total))
}
