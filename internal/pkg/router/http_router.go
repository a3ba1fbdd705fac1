package router

import (
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/oauth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	cfg      Config
	sessions *fibersession.Store
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	h.sessions = session.NewSessionStore(h.cfg.Cache)

	// init oauth providers
	oauth.Setup(h.cfg.SiteURL, h.cfg.Cache)

	// Resolve the browser's bundle and user context before any route
	app.Use(middleware.UserContextMiddleware(h.sessions, h.cfg.Registry))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(cfg Config) *HttpRouter {
	return &HttpRouter{cfg: cfg}
}
