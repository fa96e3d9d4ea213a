package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/apperror"
	"opsconsole/internal/middleware"
	"opsconsole/internal/model"
	"opsconsole/internal/repository"
	"opsconsole/internal/service"
	"opsconsole/pkg/pagination"
	"opsconsole/pkg/response"
)

// EntityHandler serves submission, listing and review for one reviewable kind.
type EntityHandler[R any, T any] struct {
	kind          model.Kind
	entities      service.EntityService[R, T]
	approvals     service.ApprovalService
	approverRoles []string
}

func NewEntityHandler[R any, T any](kind model.Kind, entities service.EntityService[R, T], approvals service.ApprovalService, approverRoles []string) *EntityHandler[R, T] {
	return &EntityHandler[R, T]{kind: kind, entities: entities, approvals: approvals, approverRoles: approverRoles}
}

// RegisterRoutes mounts the handler under /{kind}s, e.g. /accounts. The
// price list collection is /pricelists.
func (h *EntityHandler[R, T]) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/" + string(h.kind) + "s")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", middleware.RequireRole(h.approverRoles...), h.Decide)
}

// Create submits a new record for review
// @Summary      Submit a record for approval
// @Description  Stores the record as pending and records the submission in the audit log
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind     path      string  true  "Collection"  Enums(accounts, customers, products, pricelists)
// @Param        payload  body      object  true  "Create request for the collection"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/{kind} [post]
func (h *EntityHandler[R, T]) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req R
	if !bindJSON(c, &req) {
		return
	}

	entity, err := h.entities.Create(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, h.kind.Label()+" submitted for approval", entity))
}

// List returns one page of records
// @Summary      List records
// @Description  Newest first, 100 per page, optionally filtered by status
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        kind    path      string  true   "Collection"  Enums(accounts, customers, products, pricelists)
// @Param        status  query     string  false  "Status filter"  Enums(pending, approved, rejected)
// @Param        page    query     int     false  "Page number"
// @Success      200     {object}  response.Response
// @Failure      400     {object}  response.Response
// @Router       /api/{kind} [get]
func (h *EntityHandler[R, T]) List(c *gin.Context) {
	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, apperror.NewValidation("status", "must be one of: pending, approved, rejected"))
		return
	}

	items, count, err := h.entities.List(c.Request.Context(), repository.ListFilter{Status: status, Page: pagination.Page(c)})
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, h.kind.Label()+" list", items, count))
}

// Get returns a single record
// @Summary      Get record by ID
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "Collection"  Enums(accounts, customers, products, pricelists)
// @Param        id    path      string  true  "Record ID"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/{kind}/{id} [get]
func (h *EntityHandler[R, T]) Get(c *gin.Context) {
	entity, err := h.entities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.kind.Label()+" details", entity))
}

// Decide approves or rejects a pending record
// @Summary      Approve or reject
// @Description  Approval creates the record on the external platform first; the local status changes only when that succeeds
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind     path      string                   true  "Collection"  Enums(accounts, customers, products, pricelists)
// @Param        id       path      string                   true  "Record ID"
// @Param        payload  body      service.DecisionRequest  true  "Decision"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/{kind}/{id} [put]
func (h *EntityHandler[R, T]) Decide(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	entity, err := h.approvals.Decide(c.Request.Context(), h.kind, c.Param("id"), req.Status, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.kind.Label()+" "+string(entity.GetStatus()), entity))
}
