package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/middleware"
	"opsconsole/internal/service"
	"opsconsole/pkg/response"
)

// AuthHandler serves the passwordless sign-in flow.
type AuthHandler struct {
	auth service.AuthService
	gate *middleware.Gate
}

func NewAuthHandler(auth service.AuthService, gate *middleware.Gate) *AuthHandler {
	return &AuthHandler{auth: auth, gate: gate}
}

// RegisterRoutes mounts the public /auth endpoints.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/auth")
	g.POST("/otp", h.RequestCode)
	g.POST("/verify", h.VerifyCode)
	g.POST("/logout", h.Logout)
}

// RequestCode e-mails a one-time sign-in code
// @Summary      Request sign-in code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestCodeRequest  true  "E-mail"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/auth/otp [post]
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req service.RequestCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.RequestCode(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Verification code sent", nil))
}

// VerifyCode exchanges a code for a session cookie
// @Summary      Verify sign-in code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VerifyCodeRequest  true  "E-mail and code"
// @Success      200      {object}  response.Response{data=service.LoginResult}
// @Failure      400      {object}  response.Response
// @Router       /api/auth/verify [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req service.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.VerifyCode(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.gate.SetSessionCookie(c, res.Token, time.Until(res.ExpiresAt))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Signed in", res))
}

// Logout clears the session cookie
// @Summary      Sign out
// @Tags         auth
// @Success      204
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.gate.ClearSessionCookie(c)
	c.Status(http.StatusNoContent)
}
