package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TrafficWatch/app/controllers"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries what the routers need from main.
type Config struct {
	Registry *appcontext.Registry
	// Cache backs sessions and OAuth state; nil keeps them in memory.
	Cache   *redis.Client
	SiteURL string
	AnonKey string
	// Blobs is served under /storage when S3 is not configured.
	Blobs *platform.MemoryBlobStore
}

func InstallRouter(app *fiber.App, cfg Config) {
	// Install HttpRouter first: it sets up the session store and the
	// middleware resolving each browser's bundle, which the API relies on.
	setup(app, NewHttpRouter(cfg), NewApiRouter(cfg.AnonKey))

	// unmatched paths
	app.Use(controllers.HandleNotFound)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
