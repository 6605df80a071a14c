// Package handler holds the HTTP handlers of the admin.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/domain/shared"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
	"github.com/xerocraft/backend/internal/interfaces/http/middleware"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// HandleError maps err to a response. Field errors become 400s with details,
// domain errors use their code, and anything else is logged and hidden behind
// a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	var validationErr *shared.ValidationError
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &fieldErrs), errors.As(err, &validationErr):
		middleware.HandleValidationError(c, err)
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		message := domainErr.Message
		// Keep the context the caller wrapped around a sentinel
		if errors.Is(err, shared.ErrNotFound) {
			message = err.Error()
		}
		h.ErrorWithCode(c, code, message)
	case errors.Is(err, router.ErrNoReverseMatch):
		logger.GetGinLogger(c).Error("Admin route missing", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeNoReverseMatch, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.ErrorWithCode(c, dto.ErrCodeTimeout, "The request took too long")
	default:
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}
