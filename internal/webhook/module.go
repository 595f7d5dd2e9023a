package webhook

import (
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/scheduler"
	"livingrite_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration surface the webhook module needs.
type ModuleConfig interface {
	BillingConfig
	GetCalendarWebhookSecret() string
}

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	secret  string
}

// NewModule creates and initializes the webhook module.
func NewModule(pool *pgxpool.Pool, catalog CatalogResolver, cfg ModuleConfig, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, catalog, cfg, bus, log)
	h := NewHandler(svc, log)

	return &Module{handler: h, service: svc, secret: cfg.GetCalendarWebhookSecret()}
}

// SetReminderScheduler forwards the optional reminder scheduler to the service.
func (m *Module) SetReminderScheduler(rs scheduler.ReminderScheduler) {
	m.service.SetReminderScheduler(rs)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhooks")
	if ctx.PublicRateLimiter != nil {
		group.Use(ctx.PublicRateLimiter.RateLimit())
	}
	group.POST("/calendar", SignatureMiddleware(m.secret), m.handler.HandleCalendarEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
