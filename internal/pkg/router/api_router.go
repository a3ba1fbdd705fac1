package router

import (
	apiv1 "github.com/ManuelReschke/TrafficWatch/internal/api/v1"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	anonKey string
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(), middleware.AnonKeyMiddleware(h.anonKey))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(anonKey string) *ApiRouter {
	return &ApiRouter{anonKey: anonKey}
}
