// Package proposals provides the proposal funnel bounded context module:
// DRAFT through ACCEPTED/REJECTED with booking and user cascades, a public
// token surface for clients and funnel statistics for admins.
package proposals

import (
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/proposals/handler"
	"livingrite_backend/internal/proposals/repository"
	"livingrite_backend/internal/proposals/service"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the proposals bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the proposals module.
func NewModule(pool *pgxpool.Pool, cfg service.ProposalConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, cfg, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "proposals"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts proposal routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Client surface, addressed by the unguessable public token.
	public := ctx.V1.Group("/proposals")
	if ctx.PublicRateLimiter != nil {
		public.Use(ctx.PublicRateLimiter.RateLimit())
	}
	public.GET("/:token", m.handler.GetPublic)
	public.POST("/:token/accept", m.handler.Accept)
	public.POST("/:token/reject", m.handler.Reject)

	adminGroup := ctx.Admin.Group("/proposals")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/stats", m.handler.Stats)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.POST("/:id/send", m.handler.Send)
	adminGroup.POST("/bookings/:bookingId", m.handler.Create)
	adminGroup.GET("/bookings/:bookingId", m.handler.GetByBooking)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
