package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"barberia-gateway/internal/admin"
	"barberia-gateway/internal/audit"
	"barberia-gateway/internal/auth"
	"barberia-gateway/internal/backend"
	"barberia-gateway/internal/config"
	"barberia-gateway/internal/gateway"
	"barberia-gateway/internal/resource"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, backend: %s)", cfg.Server.Port, cfg.Backend.BaseURL)

	// 2. Backend API client
	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout())

	// 3. Registry with the built-in catalog and page routes
	reg := resource.NewRegistry()
	reg.Load(resource.Catalog(), resource.PageRoutes())

	// 4. Audit trail
	var trail *audit.Trail
	var recorder audit.Recorder = audit.Noop{}
	if cfg.Audit.Enabled {
		trail = audit.NewTrail(cfg.Audit.BufferSize, time.Duration(cfg.Audit.FlushIntervalMs)*time.Millisecond)
		defer trail.Stop()
		recorder = trail
	}

	// 5. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 6. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	cookie := auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		TTL:    cfg.Auth.CookieTTL(),
		Secure: cfg.Auth.CookieSecure,
	}
	xsrf := auth.NewXSRF([]byte(cfg.XSRF.HashKey), []byte(cfg.XSRF.BlockKey))
	sessionMW := auth.RequireSession(cookie)

	// 7. Public marketing endpoints — no session required
	gwHandler := gateway.NewHandler(client, reg, recorder)
	gateway.RegisterPublicRoutes(app, gwHandler)

	// 8. Auth routes
	authHandler := auth.NewHandler(client, reg, cookie, xsrf)
	auth.RegisterAuthRoutes(app, authHandler)

	// 9. Ops surface (session + full access + XSRF on mutations)
	adminHandler := admin.NewHandler(reg, trail, cfg)
	admin.RegisterAdminRoutes(app, adminHandler, sessionMW, auth.RequireFullAccess(), xsrf.Middleware())

	// 10. Resource CRUD — wildcard routes go last
	gateway.RegisterGatewayRoutes(app, gwHandler, sessionMW, xsrf.Middleware())

	// 11. Page guard + static SPA assets
	guard := auth.NewGuard(reg, cookie, cfg.Auth.LoginPath, cfg.Auth.LandingPath, cfg.Auth.PublicPaths, recorder)
	app.Use(guard.Pages())
	app.Static("/", cfg.Server.StaticDir)

	// 12. Serve, shut down cleanly on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Listen: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *gateway.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(gateway.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(gateway.ErrorResponse{
		Error: &gateway.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
