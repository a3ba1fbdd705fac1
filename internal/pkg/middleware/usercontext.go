package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/session"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the browser session's bundle and sets up
// the user context for every request.
func UserContextMiddleware(store *fibersession.Store, registry *appcontext.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own fiber session on the OAuth routes; the callback
		// resolves the bundle itself once the provider flow is complete.
		if strings.HasPrefix(c.Path(), "/auth/") {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}
		if _, err := ResolveBundle(c, store, registry); err != nil {
			log.Warnf("[Session] %v", err)
			usercontext.Set(c, usercontext.UserContext{})
		}
		return c.Next()
	}
}

// ResolveBundle attaches the bundle of the request's browser session and
// refreshes the user context from its state.
func ResolveBundle(c *fiber.Ctx, store *fibersession.Store, registry *appcontext.Registry) (*appcontext.Bundle, error) {
	sid, err := session.ID(store, c)
	if err != nil {
		return nil, err
	}
	b := registry.Get(c.UserContext(), sid)
	appcontext.Attach(c, b)
	usercontext.Set(c, usercontext.FromProfile(b.Store.Snapshot().CurrentUser))
	return b, nil
}

// RefreshUserContext re-reads the current user after a handler changed it.
func RefreshUserContext(c *fiber.Ctx) {
	if b := appcontext.FromCtx(c); b != nil {
		usercontext.Set(c, usercontext.FromProfile(b.Store.Snapshot().CurrentUser))
	}
}
