package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"livingrite_backend/platform/logger"
)

// Handler receives calendar webhook deliveries.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// HandleCalendarEvent ingests one calendar webhook delivery.
// POST /api/v1/webhooks/calendar
//
// Anything the extractor cannot parse is acknowledged and dropped; returning
// an error would make the provider retry a payload that will never parse.
func (h *Handler) HandleCalendarEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	evt, err := ExtractEvent(body)
	if err != nil {
		h.log.WebhookDropped("", "malformed payload")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.svc.HandleEvent(c.Request.Context(), evt); err != nil {
		h.log.Error("webhook processing failed", "trigger", evt.TriggerEvent, "calendarEventId", evt.CalendarEventID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
