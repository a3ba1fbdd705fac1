package controllers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/toast"
)

// HandleToasts renders the #toasts fragment polled by the layout.
func HandleToasts(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	handler := adaptor.HTTPHandler(templ.Handler(toast.List(b.Toasts.List(), csrfToken(c))))
	return handler(c)
}

// HandleToastDismiss removes a toast before its timer fires.
func HandleToastDismiss(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	b.Toasts.Remove(c.Params("id"))
	if c.Get("HX-Request") == "true" {
		return HandleToasts(c)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
