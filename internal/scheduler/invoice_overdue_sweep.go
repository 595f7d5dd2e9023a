package scheduler

import (
	"context"
	"time"

	"livingrite_backend/platform/logger"
)

const defaultInvoiceOverdueSweepInterval = time.Hour

// OverdueSweeper marks sent invoices past their due date as overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

// InvoiceOverdueSweep periodically flags invoices whose due date has passed.
type InvoiceOverdueSweep struct {
	sweeper  OverdueSweeper
	log      *logger.Logger
	interval time.Duration
}

func NewInvoiceOverdueSweep(sweeper OverdueSweeper, log *logger.Logger, interval time.Duration) *InvoiceOverdueSweep {
	if interval <= 0 {
		interval = defaultInvoiceOverdueSweepInterval
	}

	return &InvoiceOverdueSweep{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
	}
}

func (s *InvoiceOverdueSweep) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *InvoiceOverdueSweep) sweep(ctx context.Context) {
	marked, err := s.sweeper.SweepOverdue(ctx, time.Now().UTC())
	if err != nil {
		s.log.Warn("invoice overdue sweep failed", "error", err)
		return
	}

	if marked > 0 {
		s.log.Info("invoice overdue sweep marked invoices", "marked", marked)
	}
}
