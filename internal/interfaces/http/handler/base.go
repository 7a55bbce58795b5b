// Package handler implements the REST endpoints of the reference backend.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appshared "github.com/marketplace/orderflow/internal/application/shared"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/dto"
	"github.com/marketplace/orderflow/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common response helpers
type BaseHandler struct{}

// Success sends a 200 envelope
func (h *BaseHandler) Success(c *gin.Context, resp dto.Response) {
	resp.Success = true
	c.JSON(http.StatusOK, resp)
}

// Created sends a 201 envelope
func (h *BaseHandler) Created(c *gin.Context, resp dto.Response) {
	resp.Success = true
	c.JSON(http.StatusCreated, resp)
}

// Error sends a failure envelope
func (h *BaseHandler) Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message))
}

// BindError answers 400 for a body or query that failed to bind
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := appshared.FieldErrors(err); len(details) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", details))
		return
	}
	h.Error(c, http.StatusBadRequest, "Invalid request body")
}

// DomainError maps a domain or store error to its HTTP status
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	if errors.Is(err, memstore.ErrNotFound) {
		h.Error(c, http.StatusNotFound, "Resource not found")
		return
	}
	var de *shared.DomainError
	if !errors.As(err, &de) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.Error(c, StatusForCode(de.Code), de.Message)
}

// StatusForCode maps domain error codes to HTTP status codes. Rule
// violations that depend on the current state answer 409 so clients know to
// refetch.
func StatusForCode(code string) int {
	switch code {
	case shared.ErrNotFound.Code:
		return http.StatusNotFound
	case shared.ErrUnauthorized.Code, shared.ErrSessionRequired.Code:
		return http.StatusUnauthorized
	case shared.ErrForbidden.Code, order.CodeRoleNotAllowed, order.CodeNotOrderOwner, order.CodeNotAssignedDriver:
		return http.StatusForbidden
	case order.CodeIllegalTransition, order.CodeDuplicatePayment, order.CodePaymentNotEligible,
		order.CodeMalformedOrder, shared.ErrInvalidState.Code:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// actor returns the authenticated user or answers 401
func (h *BaseHandler) actor(c *gin.Context) (order.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, "Authentication required")
		return order.Actor{}, false
	}
	return actor, true
}
