package controllers

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/toast"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
	"github.com/ManuelReschke/TrafficWatch/views"
)

// errNoSession is returned when a handler runs without a resolved bundle.
var errNoSession = fiber.NewError(fiber.StatusServiceUnavailable, "session unavailable")

func currentBundle(c *fiber.Ctx) (*appcontext.Bundle, error) {
	b := appcontext.FromCtx(c)
	if b == nil {
		return nil, errNoSession
	}
	return b, nil
}

func csrfToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("csrf").(string); ok {
		return token
	}
	return ""
}

// render writes view into the main layout together with the data every
// page needs: the user, flash message, pending toasts and the csrf token.
func render(c *fiber.Ctx, view, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	token := csrfToken(c)
	data["Title"] = title
	data["User"] = usercontext.GetUserContext(c)
	data["Flash"] = flash.Get(c)
	data["CSRF"] = token
	data["Toasts"] = toastsHTML(c, token)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	return c.Render(view, data, views.Layout)
}

func toastsHTML(c *fiber.Ctx, token string) template.HTML {
	var toasts []toast.Toast
	if b := appcontext.FromCtx(c); b != nil {
		toasts = b.Toasts.List()
	}
	var buf bytes.Buffer
	if err := toast.List(toasts, token).Render(c.UserContext(), &buf); err != nil {
		log.Warnf("[Toast] Could not render toasts: %v", err)
		return ""
	}
	return template.HTML(buf.String())
}

func redirectWithError(c *fiber.Ctx, to, message string) error {
	flash.WithError(c, fiber.Map{"type": "error", "message": message})
	return c.Redirect(to, fiber.StatusSeeOther)
}

func redirectWithSuccess(c *fiber.Ctx, to, message string) error {
	flash.WithSuccess(c, fiber.Map{"type": "success", "message": message})
	return c.Redirect(to, fiber.StatusSeeOther)
}

func redirectWithInfo(c *fiber.Ctx, to, message string) error {
	flash.WithInfo(c, fiber.Map{"type": "info", "message": message})
	return c.Redirect(to, fiber.StatusSeeOther)
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
