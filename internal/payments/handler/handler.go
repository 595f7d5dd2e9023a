// Package handler exposes the payments HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"livingrite_backend/internal/payments/service"
	"livingrite_backend/internal/payments/transport"
	"livingrite_backend/platform/httpkit"
	"livingrite_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid booking id"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListMine returns the authenticated client's payments.
// GET /api/v1/payments
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListForUser(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetMineByBooking returns the payment for one of the caller's bookings.
// GET /api/v1/payments/bookings/:id
func (h *Handler) GetMineByBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	ownerID := identity.UserID()
	result, err := h.svc.GetByBooking(c.Request.Context(), bookingID, &ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Initialize opens a gateway checkout session for the caller's booking.
// POST /api/v1/payments/bookings/:id/initialize
func (h *Handler) Initialize(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	ownerID := identity.UserID()
	result, err := h.svc.Initialize(c.Request.Context(), bookingID, &ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// VerifyCallback settles a payment after the gateway redirect.
// GET /api/v1/payments/callback?reference=...
func (h *Handler) VerifyCallback(c *gin.Context) {
	var req transport.VerifyCallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.VerifyCallback(c.Request.Context(), req.Reference)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByBooking returns any booking's payment (admin).
// GET /api/v1/admin/payments/bookings/:id
func (h *Handler) GetByBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByBooking(c.Request.Context(), bookingID, nil)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateAmount corrects the charge on an unsettled payment (admin).
// PATCH /api/v1/admin/payments/bookings/:id/amount
func (h *Handler) UpdateAmount(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdatePaymentAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateAmount(c.Request.Context(), bookingID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
