// Package router assembles the Gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "livingrite_backend/internal/http"
	"livingrite_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the Gin engine: global middleware, health endpoints, the
// /api/v1 route groups, and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	registerHealthRoutes(engine, app)

	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(authMiddleware)

	admin := v1.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(httpkit.RequireRole("admin"))

	routerCtx := &apphttp.RouterContext{
		Engine:            engine,
		V1:                v1,
		Protected:         protected,
		Admin:             admin,
		Config:            app.Config,
		AuthMiddleware:    authMiddleware,
		PublicRateLimiter: httpkit.NewPublicRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Calendar-Signature"},
		AllowCredentials: app.Config.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = app.Config.GetCORSOrigins()
	}
	return cors.New(corsCfg)
}

func registerHealthRoutes(engine *gin.Engine, app *apphttp.App) {
	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/api/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := app.Health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
