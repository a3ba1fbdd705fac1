package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// HandleStart shows the landing page, or the dashboard for signed-in users.
func HandleStart(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if uc.IsLoggedIn {
		if uc.IsAdmin {
			return c.Redirect("/admin/dashboard", fiber.StatusSeeOther)
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return render(c, "index", "", nil)
}

// HandleNotFound sends unknown paths back to the start page. API clients
// get a JSON 404 instead.
func HandleNotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Resource not found",
		})
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
