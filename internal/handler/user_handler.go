package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/middleware"
	"opsconsole/internal/service"
	"opsconsole/pkg/pagination"
	"opsconsole/pkg/response"
)

type UserHandler struct {
	userService   service.UserService
	approverRoles []string
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, approverRoles []string) *UserHandler {
	return &UserHandler{userService: userService, approverRoles: approverRoles}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.GetMe)

	users := router.Group("/users")
	users.Use(middleware.RequireRole(h.approverRoles...))
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUserByID)
		users.POST("", h.CreateUser)
	}
}

// CreateUser handles POST /users requests
// @Summary      Create a new user
// @Description  Registers an operator who can then sign in with an e-mailed code
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=model.User}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "User created", user))
}

// GetMe returns the authenticated user
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.User}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), a.ID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Current user", user))
}

// ListUsers handles GET /users and extracts pagination controls
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]model.User}
// @Failure      403    {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, "Users", users, total))
}

// GetUserByID handles GET /users/:id
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=model.User}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User details", user))
}
