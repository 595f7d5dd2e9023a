// Package services provides the care service catalog bounded context module.
package services

import (
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/services/handler"
	"livingrite_backend/internal/services/repository"
	"livingrite_backend/internal/services/service"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, cfg service.CatalogConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "services"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/services", m.handler.List)
	ctx.V1.GET("/services/:id", m.handler.Get)

	adminGroup := ctx.Admin.Group("/services")
	adminGroup.POST("", m.handler.Create)
	adminGroup.PUT("/:id", m.handler.Update)
}
