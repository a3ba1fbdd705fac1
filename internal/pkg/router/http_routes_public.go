package router

import (
	"github.com/ManuelReschke/TrafficWatch/app/controllers"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h *HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Social OAuth; the callback resolves the session bundle itself
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.NewOAuthController(h.sessions, h.cfg.Registry).HandleCallback)

	// Email links
	app.Get("/email-verified", controllers.HandleEmailVerified)

	// Evidence images and documents when running without S3
	if h.cfg.Blobs != nil {
		app.Get("/storage/v1/object/public/:bucket/*", middleware.RequireAuth, controllers.HandleBlob(h.cfg.Blobs))
	}
}
