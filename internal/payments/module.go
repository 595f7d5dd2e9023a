// Package payments provides the payment bounded context module: per-booking
// payment records, the gateway checkout flow and settlement callbacks.
package payments

import (
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/payments/gateway"
	"livingrite_backend/internal/payments/handler"
	"livingrite_backend/internal/payments/repository"
	"livingrite_backend/internal/payments/service"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration surface the payments module needs.
type ModuleConfig interface {
	service.GatewayConfig
	GetGatewayBaseURL() string
	GetGatewaySecretKey() string
}

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the payments module.
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	gw := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.GetGatewayBaseURL(),
		SecretKey: cfg.GetGatewaySecretKey(),
	})
	svc := service.New(repo, gw, cfg, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetInvoiceSyncer wires the invoices module into the settlement callback.
func (m *Module) SetInvoiceSyncer(inv service.InvoiceSyncer) {
	m.service.SetInvoiceSyncer(inv)
}

// RegisterRoutes mounts payment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/payments", m.handler.ListMine)
	ctx.Protected.GET("/payments/bookings/:id", m.handler.GetMineByBooking)
	ctx.Protected.POST("/payments/bookings/:id/initialize", m.handler.Initialize)

	// Gateway redirect target. Unauthenticated: the payer lands here from
	// the hosted checkout page.
	callback := ctx.V1.Group("/payments")
	if ctx.PublicRateLimiter != nil {
		callback.Use(ctx.PublicRateLimiter.RateLimit())
	}
	callback.GET("/callback", m.handler.VerifyCallback)

	adminGroup := ctx.Admin.Group("/payments")
	adminGroup.GET("/bookings/:id", m.handler.GetByBooking)
	adminGroup.PATCH("/bookings/:id/amount", m.handler.UpdateAmount)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
