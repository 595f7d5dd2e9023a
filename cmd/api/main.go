package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livingrite_backend/internal/bookings"
	"livingrite_backend/internal/email"
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/http/router"
	"livingrite_backend/internal/invoices"
	"livingrite_backend/internal/notification"
	"livingrite_backend/internal/payments"
	"livingrite_backend/internal/proposals"
	"livingrite_backend/internal/scheduler"
	"livingrite_backend/internal/services"
	"livingrite_backend/internal/webhook"
	"livingrite_backend/platform/config"
	"livingrite_backend/platform/db"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(pool, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	servicesModule := services.NewModule(pool, cfg, val, log)
	bookingsModule := bookings.NewModule(pool, servicesModule.Service(), cfg, eventBus, val, log)
	paymentsModule := payments.NewModule(pool, cfg, eventBus, val, log)

	invoicesModule, err := invoices.NewModule(pool, cfg, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize invoices module", "error", err)
		panic("failed to initialize invoices module: " + err.Error())
	}

	// Invoice settlement rides the payment callback itself: a settled
	// payment and a PAID invoice are one contract.
	paymentsModule.SetInvoiceSyncer(invoicesModule.Service())

	proposalsModule := proposals.NewModule(pool, cfg, eventBus, val, log)

	// The webhook ingestor resolves event type slugs against the care
	// service catalog and plans reminders when redis is configured.
	webhookModule := webhook.NewModule(pool, servicesModule.Service(), cfg, eventBus, log)
	if reminderScheduler != nil {
		webhookModule.SetReminderScheduler(reminderScheduler)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			servicesModule,
			bookingsModule,
			webhookModule,
			paymentsModule,
			invoicesModule,
			proposalsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; booking reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
