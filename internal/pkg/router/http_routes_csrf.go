package router

import (
	"strings"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/controllers"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h *HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", controllers.HandleStart)

	// Auth
	group.Get("/login", middleware.RequireGuest, controllers.HandleAuthLogin)
	group.Post("/login", middleware.RequireGuest, controllers.HandleAuthLogin)
	group.Get("/register", middleware.RequireGuest, controllers.HandleAuthRegister)
	group.Post("/register", middleware.RequireGuest, controllers.HandleAuthRegister)
	group.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)
	group.Get("/verify-email", controllers.HandleVerifyEmail)
	group.Post("/verify-email", controllers.HandleVerifyEmail)
	group.Get("/reset-password", controllers.HandleResetPassword)
	group.Post("/reset-password", controllers.HandleResetPassword)
	group.Get("/reset-password/new", middleware.RequireAuth, controllers.HandleNewPassword)
	group.Post("/reset-password/new", middleware.RequireAuth, controllers.HandleNewPassword)

	// Toasts
	group.Get("/toasts", controllers.HandleToasts)
	group.Post("/toasts/:id/dismiss", controllers.HandleToastDismiss)

	// Citizens
	group.Get("/dashboard", middleware.RequireAuth, controllers.HandleDashboard)
	group.Get("/submit-complaint", middleware.RequireAuth, controllers.HandleSubmitComplaint)
	group.Post("/submit-complaint", middleware.RequireAuth, controllers.HandleSubmitComplaint)
	group.Get("/my-complaints", middleware.RequireAuth, controllers.HandleMyComplaints)
	group.Get("/complaint/:id", middleware.RequireAuth, controllers.HandleComplaintDetail)
	group.Post("/documents/:type", middleware.RequireAuth, controllers.HandleDocumentUpload)

	h.registerAdminRoutes(group)
}
