package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/audit"
	"barberia-gateway/internal/config"
	"barberia-gateway/internal/resource"
)

// Handler is the full-access ops surface: inspect the running policy, swap
// route requirements at runtime, and read recent authorization decisions.
type Handler struct {
	registry *resource.Registry
	trail    *audit.Trail
	cfg      *config.Config
}

func NewHandler(reg *resource.Registry, trail *audit.Trail, cfg *config.Config) *Handler {
	return &Handler{registry: reg, trail: trail, cfg: cfg}
}

// RegisterAdminRoutes registers the ops routes; callers pass the session and
// full-access middlewares.
func RegisterAdminRoutes(app *fiber.App, h *Handler, middlewares ...fiber.Handler) {
	grp := app.Group("/api/_admin", middlewares...)

	grp.Get("/resources", h.ListResources)
	grp.Get("/routes", h.ListRoutes)
	grp.Put("/routes", h.ReplaceRoute)
	grp.Get("/audit", h.RecentDecisions)
	grp.Get("/config", h.ConfigSnapshot)
}

func (h *Handler) ListResources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.All()})
}

func (h *Handler) ListRoutes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.Routes()})
}

// ReplaceRoute swaps the permission list for a declared page path. The change
// is visible to the very next guard evaluation.
func (h *Handler) ReplaceRoute(c *fiber.Ctx) error {
	var body resource.RouteRequirement
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": fiber.Map{"code": "INVALID_PAYLOAD", "message": "Invalid JSON body"}})
	}
	if body.Path == "" {
		return c.Status(422).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION_FAILED", "message": "path is required"}})
	}
	if !h.registry.ReplaceRoute(body.Path, body.Permissions) {
		return c.Status(404).JSON(fiber.Map{"error": fiber.Map{"code": "NOT_FOUND", "message": "Route not declared: " + body.Path}})
	}
	return c.JSON(fiber.Map{"data": body})
}

func (h *Handler) RecentDecisions(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if h.trail == nil {
		return c.JSON(fiber.Map{"data": []audit.Decision{}})
	}
	return c.JSON(fiber.Map{"data": h.trail.Recent(limit)})
}

// ConfigSnapshot returns the effective config with secrets redacted.
func (h *Handler) ConfigSnapshot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"server": fiber.Map{
			"port":       h.cfg.Server.Port,
			"static_dir": h.cfg.Server.StaticDir,
		},
		"backend": fiber.Map{
			"base_url":   h.cfg.Backend.BaseURL,
			"timeout_ms": h.cfg.Backend.TimeoutMs,
		},
		"auth": fiber.Map{
			"cookie_name":     h.cfg.Auth.CookieName,
			"cookie_ttl_days": h.cfg.Auth.CookieTTLDays,
			"login_path":      h.cfg.Auth.LoginPath,
			"landing_path":    h.cfg.Auth.LandingPath,
			"public_paths":    h.cfg.Auth.PublicPaths,
		},
		"xsrf": fiber.Map{
			"hash_key":  "[redacted]",
			"block_key": "[redacted]",
		},
		"audit": fiber.Map{
			"enabled":           h.cfg.Audit.Enabled,
			"buffer_size":       h.cfg.Audit.BufferSize,
			"flush_interval_ms": h.cfg.Audit.FlushIntervalMs,
		},
	}})
}
