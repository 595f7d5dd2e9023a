// Package handler exposes the proposal HTTP endpoints: the admin funnel
// surface and the token-addressed client surface.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"livingrite_backend/internal/proposals/service"
	"livingrite_backend/internal/proposals/transport"
	"livingrite_backend/platform/httpkit"
	"livingrite_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid proposal id"
)

// Handler handles HTTP requests for proposals.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new proposals handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create issues a DRAFT proposal for a booking.
// POST /api/v1/admin/proposals/bookings/:bookingId
func (h *Handler) Create(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid booking id", nil)
		return
	}
	var req transport.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), bookingID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// List returns proposals, optionally filtered by status.
// GET /api/v1/admin/proposals
func (h *Handler) List(c *gin.Context) {
	var req transport.ListProposalsRequest
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

// Stats returns the conversion funnel aggregate.
// GET /api/v1/admin/proposals/stats
func (h *Handler) Stats(c *gin.Context) {
	result, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns a proposal by id.
// GET /api/v1/admin/proposals/:id
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

// GetByBooking returns the proposal for a booking.
// GET /api/v1/admin/proposals/bookings/:bookingId
func (h *Handler) GetByBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid booking id", nil)
		return
	}

	result, err := h.svc.GetByBooking(c.Request.Context(), bookingID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Send moves a proposal to SENT and flags its booking.
// POST /api/v1/admin/proposals/:id/send
func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Send(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPublic returns the client-facing proposal view and stamps first view.
// GET /api/v1/proposals/:token
func (h *Handler) GetPublic(c *gin.Context) {
	result, err := h.svc.GetPublic(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Accept accepts the proposal behind a public token.
// POST /api/v1/proposals/:token/accept
func (h *Handler) Accept(c *gin.Context) {
	result, err := h.svc.Accept(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reject rejects the proposal behind a public token with a reason.
// POST /api/v1/proposals/:token/reject
func (h *Handler) Reject(c *gin.Context) {
	var req transport.RejectProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), c.Param("token"), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
