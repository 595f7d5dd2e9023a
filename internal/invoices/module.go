// Package invoices provides the invoicing bounded context module: gapless
// per-year invoice numbering, lifecycle management, payment synchronization
// and PDF archival.
package invoices

import (
	"context"
	"fmt"

	"livingrite_backend/internal/adapters/storage"
	"livingrite_backend/internal/events"
	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/internal/invoices/handler"
	"livingrite_backend/internal/invoices/repository"
	"livingrite_backend/internal/invoices/service"
	"livingrite_backend/internal/pdf"
	"livingrite_backend/platform/logger"
	"livingrite_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration surface the invoices module needs.
type ModuleConfig interface {
	service.BillingConfig
	storage.Config
	GetMinioBucketInvoiceDocuments() string
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// Module is the invoices bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates and initializes the invoices module. The PDF pipeline
// (Gotenberg + MinIO) is optional; without it invoices work but documents
// cannot be generated.
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.NewRepository(pool)

	var renderer service.Renderer
	if cfg.IsGotenbergEnabled() {
		renderer = pdf.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
	}

	var storageSvc storage.StorageService
	bucket := cfg.GetMinioBucketInvoiceDocuments()
	if cfg.IsMinIOEnabled() {
		svc, err := storage.NewMinIOService(cfg)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if err := svc.EnsureBucketExists(context.Background(), bucket); err != nil {
			return nil, fmt.Errorf("ensure invoice bucket: %w", err)
		}
		storageSvc = svc
	}

	svc := service.New(repo, cfg, bus, log, renderer, storageSvc, bucket)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, log: log}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "invoices"
}

// Service returns the service layer for cross-module use (scheduler sweep).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts invoice routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/invoices")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.POST("/:id/send", m.handler.Send)
	adminGroup.POST("/:id/cancel", m.handler.Cancel)
	adminGroup.POST("/:id/document", m.handler.GenerateDocument)
	adminGroup.GET("/:id/document", m.handler.GetDocumentURL)
	adminGroup.POST("/bookings/:bookingId", m.handler.Create)
	adminGroup.GET("/bookings/:bookingId", m.handler.GetByBooking)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
