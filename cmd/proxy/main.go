package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xform-media/xform/cmd/proxy/container"
	"github.com/xform-media/xform/cmd/proxy/routes"
	"github.com/xform-media/xform/common/bootstrap"
	xmiddleware "github.com/xform-media/xform/common/middleware"
	"github.com/xform-media/xform/common/server"
	"github.com/xform-media/xform/common/telemetry"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, tenant registry)
	components, err := bootstrap.Setup(ctx, "proxy")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap proxy: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e, serviceContainer)

	// Setup health check
	setupHealthCheck(e)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Optional pprof debug server
	debug := telemetry.New(components.Config.Service.PprofPort, components.Logger)
	debug.Start()
	components.AddCleanup(debug.Stop)

	// Start server with graceful shutdown
	srv := server.New("proxy", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, c *container.Container) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// The proxy only ever serves reads
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctx.Response().Header().Set(echo.HeaderAccessControlAllowMethods, "GET")
			return next(ctx)
		}
	})

	if c.RateLimiter != nil {
		cfg := c.Components.Config.RateLimit
		e.Use(xmiddleware.TenantRateLimitMiddleware(c.RateLimiter, cfg.Limit, cfg.WindowSec))
	}
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "proxy",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterImageRoutes(e, serviceContainer)
}
