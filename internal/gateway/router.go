package gateway

import "github.com/gofiber/fiber/v2"

// RegisterPublicRoutes registers the unauthenticated marketing endpoints.
func RegisterPublicRoutes(app *fiber.App, h *Handler) {
	pub := app.Group("/api/public")
	pub.Get("/:resource", h.PublicList)
	pub.Get("/:resource/:id", h.PublicGet)
}

// RegisterGatewayRoutes registers the resource CRUD routes. These use
// wildcard resource params, so auth and admin routes must be registered
// first to win the match.
func RegisterGatewayRoutes(app *fiber.App, h *Handler, middlewares ...fiber.Handler) {
	api := app.Group("/api", middlewares...)
	api.Get("/:resource", h.List)
	api.Get("/:resource/:id", h.GetByID)
	api.Post("/:resource", h.Create)
	api.Put("/:resource/:id", h.Update)
	api.Delete("/:resource/:id", h.Delete)
}
