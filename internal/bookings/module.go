// Package bookings provides the booking lifecycle bounded context module.
package bookings

import (
	"livingrite_backend/internal/bookings/handler"
	"livingrite_backend/internal/bookings/repository"
	"livingrite_backend/internal/bookings/service"
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the bookings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the bookings module.
func NewModule(pool *pgxpool.Pool, prices service.PriceResolver, cfg service.BillingConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, prices, cfg, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bookings"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for adapter wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts booking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/bookings", m.handler.CreateMine)
	ctx.Protected.GET("/bookings", m.handler.ListMine)
	ctx.Protected.GET("/bookings/:id", m.handler.GetMine)
	ctx.Protected.POST("/bookings/:id/cancel", m.handler.CancelMine)
	ctx.Protected.POST("/bookings/:id/reschedule", m.handler.RescheduleMine)
	ctx.Protected.POST("/bookings/:id/intake-form", m.handler.SubmitIntakeForm)

	adminGroup := ctx.Admin.Group("/bookings")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/stats", m.handler.Stats)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.PATCH("/:id/status", m.handler.UpdateStatus)
	adminGroup.POST("/:id/complete", m.handler.Complete)
	adminGroup.POST("/:id/cancel", m.handler.Cancel)
}
