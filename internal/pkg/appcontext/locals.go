package appcontext

import "github.com/gofiber/fiber/v2"

// LocalsKey holds the request's *Bundle.
const LocalsKey = "APP_BUNDLE"

// FromCtx returns the bundle attached by the session middleware, or nil.
func FromCtx(c *fiber.Ctx) *Bundle {
	b, _ := c.Locals(LocalsKey).(*Bundle)
	return b
}

// Attach makes b the bundle of the request.
func Attach(c *fiber.Ctx, b *Bundle) {
	c.Locals(LocalsKey, b)
}
