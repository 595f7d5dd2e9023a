package webhook

import (
	"context"
	"time"

	"livingrite_backend/internal/events"
	"livingrite_backend/internal/scheduler"
	catalogrepo "livingrite_backend/internal/services/repository"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/phone"

	"github.com/google/uuid"
)

// Ingestor is the narrow persistence interface the service writes through.
// Implemented by *Repository; faked in tests.
type Ingestor interface {
	IngestCreated(ctx context.Context, p IngestParams) (*IngestResult, error)
	CancelByCalendarEventID(ctx context.Context, calendarEventID string, at time.Time) (*StatusUpdateResult, error)
	CompleteByCalendarEventID(ctx context.Context, calendarEventID string) (*StatusUpdateResult, error)
	RescheduleByCalendarEventID(ctx context.Context, previousEventID, newEventID string, newStart time.Time, timezone string) (*StatusUpdateResult, error)
}

// CatalogResolver maps the provider's event type slug to a catalog entry.
type CatalogResolver interface {
	ResolveBySlug(ctx context.Context, slug string) (*catalogrepo.CareService, error)
}

// BillingConfig supplies pricing defaults for events that do not match a
// catalog entry.
type BillingConfig interface {
	GetDefaultCurrency() string
}

// Service turns extracted calendar events into booking state changes.
// Malformed or unactionable events are dropped and acknowledged; the
// provider retries on anything but a 2xx and a permanent failure would
// retry forever.
type Service struct {
	ingest    Ingestor
	catalog   CatalogResolver
	cfg       BillingConfig
	bus       events.Bus
	log       *logger.Logger
	reminders scheduler.ReminderScheduler
}

// NewService creates the webhook ingest service.
func NewService(ingest Ingestor, catalog CatalogResolver, cfg BillingConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{ingest: ingest, catalog: catalog, cfg: cfg, bus: bus, log: log}
}

// SetReminderScheduler enables reminder scheduling for ingested bookings.
// The webhook works without it; reminders are simply not planned.
func (s *Service) SetReminderScheduler(rs scheduler.ReminderScheduler) {
	s.reminders = rs
}

// HandleEvent dispatches one extracted calendar event. A nil return means
// the event is consumed, including the dropped cases.
func (s *Service) HandleEvent(ctx context.Context, evt ExtractedEvent) error {
	switch evt.TriggerEvent {
	case TriggerBookingCreated:
		return s.handleCreated(ctx, evt)
	case TriggerBookingCancelled:
		return s.handleCancelled(ctx, evt)
	case TriggerBookingRescheduled:
		return s.handleRescheduled(ctx, evt)
	case TriggerBookingCompleted, TriggerMeetingEnded:
		return s.handleCompleted(ctx, evt)
	default:
		s.log.WebhookDropped(evt.TriggerEvent, "unknown trigger")
		return nil
	}
}

func (s *Service) handleCreated(ctx context.Context, evt ExtractedEvent) error {
	if evt.IsIncomplete() {
		s.log.WebhookDropped(evt.TriggerEvent, "missing event id or attendee email")
		return nil
	}

	params := IngestParams{
		CalendarEventID: evt.CalendarEventID,
		Title:           evt.Title,
		ClientName:      evt.AttendeeName,
		ClientEmail:     evt.AttendeeEmail,
		ClientPhone:     phone.NormalizeE164(evt.AttendeePhone),
		ScheduledAt:     evt.StartTime,
		Timezone:        evt.Timezone,
		MeetingLink:     evt.MeetingLink,
		Note:            evt.Notes,
		IntakeForm:      evt.IntakeForm,
		Currency:        s.cfg.GetDefaultCurrency(),
	}

	if evt.EventTypeSlug != "" {
		svc, err := s.catalog.ResolveBySlug(ctx, evt.EventTypeSlug)
		if err != nil {
			return err
		}
		if svc != nil {
			params.ServiceID = &svc.ID
			params.AmountCents = svc.BasePriceCents
			params.Currency = svc.Currency
		}
	}

	res, err := s.ingest.IngestCreated(ctx, params)
	if err != nil {
		return err
	}

	outcome := "replayed"
	if res.Created {
		outcome = "created"
		s.bus.Publish(ctx, events.BookingScheduled{
			BaseEvent:       events.NewBaseEvent(),
			BookingID:       res.BookingID,
			UserID:          res.UserID,
			CalendarEventID: evt.CalendarEventID,
			ClientName:      evt.AttendeeName,
			ClientEmail:     evt.AttendeeEmail,
			ScheduledAt:     evt.StartTime,
			Timezone:        evt.Timezone,
			MeetingLink:     evt.MeetingLink,
			PaymentStatus:   string(res.PaymentStatus),
		})
		s.scheduleReminder(ctx, res.BookingID, evt.StartTime)
	}
	s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, outcome)
	return nil
}

func (s *Service) scheduleReminder(ctx context.Context, bookingID uuid.UUID, startAt time.Time) {
	if s.reminders == nil || startAt.IsZero() {
		return
	}

	reminderAt := startAt.Add(-24 * time.Hour)
	if !reminderAt.After(time.Now()) {
		return
	}

	err := s.reminders.ScheduleBookingReminder(ctx, scheduler.BookingReminderPayload{
		BookingID: bookingID.String(),
	}, reminderAt)
	if err != nil {
		s.log.Warn("schedule booking reminder failed", "bookingId", bookingID, "error", err)
	}
}

func (s *Service) handleCancelled(ctx context.Context, evt ExtractedEvent) error {
	if evt.CalendarEventID == "" {
		s.log.WebhookDropped(evt.TriggerEvent, "missing event id")
		return nil
	}

	now := time.Now().UTC()
	res, err := s.ingest.CancelByCalendarEventID(ctx, evt.CalendarEventID, now)
	if err != nil {
		return err
	}
	if !res.Applied {
		s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "ignored")
		return nil
	}

	s.bus.Publish(ctx, events.BookingCancelled{
		BaseEvent:       events.NewBaseEvent(),
		BookingID:       res.BookingID,
		UserID:          res.UserID,
		CalendarEventID: evt.CalendarEventID,
		ClientName:      res.ClientName,
		ClientEmail:     res.ClientEmail,
		Title:           res.Title,
		Reason:          evt.CancellationReason,
		CancelledAt:     now,
	})
	s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "cancelled")
	return nil
}

func (s *Service) handleRescheduled(ctx context.Context, evt ExtractedEvent) error {
	if evt.CalendarEventID == "" {
		s.log.WebhookDropped(evt.TriggerEvent, "missing event id")
		return nil
	}

	// Most providers keep the booking's uid across a reschedule and only
	// send a new start time; lineage is then the booking's own uid. A
	// provider that mints a fresh uid carries the old one in rescheduleUid.
	previousEventID := evt.RescheduleUID
	if previousEventID == "" {
		previousEventID = evt.CalendarEventID
	}

	res, err := s.ingest.RescheduleByCalendarEventID(ctx, previousEventID, evt.CalendarEventID, evt.StartTime, evt.Timezone)
	if err != nil {
		return err
	}
	if !res.Applied {
		// The previous event id is unknown or the booking is terminal.
		// Treat the new slot as a fresh booking instead of losing it.
		s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "unknown origin, ingesting as created")
		return s.handleCreated(ctx, evt)
	}

	s.bus.Publish(ctx, events.BookingRescheduled{
		BaseEvent:       events.NewBaseEvent(),
		BookingID:       res.BookingID,
		CalendarEventID: evt.CalendarEventID,
		ClientName:      res.ClientName,
		ClientEmail:     res.ClientEmail,
		Title:           res.Title,
		NewScheduledAt:  evt.StartTime,
		Timezone:        evt.Timezone,
	})
	s.scheduleReminder(ctx, res.BookingID, evt.StartTime)
	s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "rescheduled")
	return nil
}

func (s *Service) handleCompleted(ctx context.Context, evt ExtractedEvent) error {
	if evt.CalendarEventID == "" {
		s.log.WebhookDropped(evt.TriggerEvent, "missing event id")
		return nil
	}

	res, err := s.ingest.CompleteByCalendarEventID(ctx, evt.CalendarEventID)
	if err != nil {
		return err
	}
	if !res.Applied {
		s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "ignored")
		return nil
	}

	s.bus.Publish(ctx, events.BookingCompleted{
		BaseEvent:       events.NewBaseEvent(),
		BookingID:       res.BookingID,
		UserID:          res.UserID,
		CalendarEventID: evt.CalendarEventID,
		ClientName:      res.ClientName,
		ClientEmail:     res.ClientEmail,
		Title:           res.Title,
	})
	s.log.WebhookEvent(evt.TriggerEvent, evt.CalendarEventID, "completed")
	return nil
}
