// Package handler holds the gin handlers of the back office API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the request ID assigned by the logger middleware
func getRequestID(c *gin.Context) string {
	if id := c.Writer.Header().Get(logger.RequestIDHeader); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status code from the error code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ValidationError sends a 400 response listing the fields rejected by binding
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidInput, "Request validation failed", getRequestID(c))
	resp.Error.Details = middleware.ValidationDetails(err)
	c.JSON(http.StatusBadRequest, resp)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeInternal, message)
}

// HandleDomainError converts domain errors to HTTP responses. Anything else
// is logged and answered with a 500 that does not leak the cause.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
	h.InternalError(c, "An internal error occurred")
}

// businessID returns the business resolved by the tenant middleware
func (h *BaseHandler) businessID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetBusinessID(c)
	if !ok {
		h.Error(c, dto.ErrCodeInvalidInput, "Tenant identification required")
	}
	return id, ok
}
