package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"opsconsole/internal/apperror"
	"opsconsole/internal/logger"
	"opsconsole/internal/middleware"
	"opsconsole/internal/model"
	"opsconsole/internal/validation"
	"opsconsole/internal/zoho"
	"opsconsole/pkg/response"
)

// respondError maps a service error to its HTTP status and envelope. Unknown
// errors are logged and reported as 500 without leaking their text.
func respondError(c *gin.Context, err error) {
	var (
		ve *apperror.ValidationError
		se *zoho.SyncError
		ae *zoho.UpstreamAuthError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, "Validation failed", ve.Fields))
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, apperror.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
	case errors.Is(err, apperror.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Resource not found or no longer pending"))
	case errors.Is(err, apperror.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "Another decision for this record is in progress"))
	case errors.Is(err, apperror.ErrDuplicate):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "A record with the same code already exists"))
	case errors.As(err, &se):
		logger.FromGin(c).Warn("external sync failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "ExternalSyncError: "+se.Error()))
	case errors.As(err, &ae):
		logger.FromGin(c).Error("upstream auth failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "UpstreamAuthError: external platform credentials are unavailable"))
	default:
		logger.FromGin(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

// bindJSON decodes the body and answers 400 itself when that fails.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, validation.FromBind(err))
		return false
	}
	return true
}

// actor returns the authenticated caller or answers 401.
func actor(c *gin.Context) (model.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, apperror.ErrUnauthorized)
	}
	return a, ok
}
