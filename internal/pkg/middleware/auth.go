package middleware

import (
	"github.com/gofiber/fiber/v2"

	icuser "github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
func RequireAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin. Citizens are sent to their dashboard.
func RequireAdmin(c *fiber.Ctx) error {
	uc := icuser.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if !uc.IsAdmin {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireGuest sends signed-in users to their dashboard, e.g. away from /login.
func RequireGuest(c *fiber.Ctx) error {
	uc := icuser.GetUserContext(c)
	if uc.IsLoggedIn {
		if uc.IsAdmin {
			return c.Redirect("/admin/dashboard", fiber.StatusSeeOther)
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
