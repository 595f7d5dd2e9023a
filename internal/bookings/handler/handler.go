// Package handler exposes the bookings HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"livingrite_backend/internal/bookings/service"
	"livingrite_backend/internal/bookings/transport"
	"livingrite_backend/platform/httpkit"
	"livingrite_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid booking id"
)

// Handler handles HTTP requests for bookings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bookings handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateMine books a consultation for the authenticated client.
// POST /api/v1/bookings
func (h *Handler) CreateMine(c *gin.Context) {
	var req transport.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ListMine returns the authenticated client's bookings.
// GET /api/v1/bookings
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

// GetMine returns one of the authenticated client's bookings.
// GET /api/v1/bookings/:id
func (h *Handler) GetMine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetOwned(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CancelMine cancels one of the authenticated client's bookings.
// POST /api/v1/bookings/:id/cancel
func (h *Handler) CancelMine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	ownerID := identity.UserID()
	result, err := h.svc.Cancel(c.Request.Context(), id, &ownerID, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RescheduleMine moves one of the authenticated client's bookings to a new
// slot.
// POST /api/v1/bookings/:id/reschedule
func (h *Handler) RescheduleMine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	ownerID := identity.UserID()
	result, err := h.svc.Reschedule(c.Request.Context(), id, &ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SubmitIntakeForm stores the pre-visit intake form on a booking.
// POST /api/v1/bookings/:id/intake-form
func (h *Handler) SubmitIntakeForm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.SubmitIntakeFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.SubmitIntakeForm(c.Request.Context(), id, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns bookings for the admin overview.
// GET /api/v1/admin/bookings
func (h *Handler) List(c *gin.Context) {
	var req transport.ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Stats returns booking counts per status plus the upcoming total (admin).
// GET /api/v1/admin/bookings/stats
func (h *Handler) Stats(c *gin.Context) {
	result, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns any booking by id (admin).
// GET /api/v1/admin/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateStatus moves a booking to a new status (admin).
// PATCH /api/v1/admin/bookings/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Complete marks a booking completed after the visit (admin).
// POST /api/v1/admin/bookings/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Cancel cancels any booking (admin).
// POST /api/v1/admin/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id, nil, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
