// Package handler exposes the invoices HTTP endpoints. All of them are
// admin-scoped except the client-facing document download.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"livingrite_backend/internal/invoices/service"
	"livingrite_backend/internal/invoices/transport"
	"livingrite_backend/platform/httpkit"
	"livingrite_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid invoice id"
)

// Handler handles HTTP requests for invoices.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new invoices handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create issues an invoice for a booking.
// POST /api/v1/admin/invoices/bookings/:bookingId
func (h *Handler) Create(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid booking id", nil)
		return
	}
	var req transport.CreateInvoiceRequest
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

// List returns invoices, optionally filtered by status.
// GET /api/v1/admin/invoices
func (h *Handler) List(c *gin.Context) {
	var req transport.ListInvoicesRequest
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

// Get returns an invoice by id.
// GET /api/v1/admin/invoices/:id
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

// Send marks an invoice SENT.
// POST /api/v1/admin/invoices/:id/send
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

// Cancel withdraws an unpaid invoice.
// POST /api/v1/admin/invoices/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GenerateDocument renders and archives the invoice PDF.
// POST /api/v1/admin/invoices/:id/document
func (h *Handler) GenerateDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GenerateDocument(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetDocumentURL returns a presigned download link for the invoice PDF.
// GET /api/v1/admin/invoices/:id/document
func (h *Handler) GetDocumentURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.DocumentURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByBooking returns the invoice for a booking.
// GET /api/v1/admin/invoices/bookings/:bookingId
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
