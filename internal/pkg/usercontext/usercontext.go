package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/app/models"
)

// UserContext represents the signed-in user of a request
type UserContext struct {
	UserID       string `json:"user_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	IsLoggedIn   bool   `json:"is_logged_in"`
	IsAdmin      bool   `json:"is_admin"`
}

// FromProfile builds the context of a signed-in user. A nil profile is anonymous.
func FromProfile(p *models.Profile) UserContext {
	if p == nil {
		return UserContext{}
	}
	return UserContext{
		UserID:       p.ID,
		FullName:     p.FullName,
		Email:        p.Email,
		VehiclePlate: p.VehiclePlate,
		IsLoggedIn:   true,
		IsAdmin:      p.IsAdmin(),
	}
}

// Set stores uc on the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(LocalsKey, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(LocalsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}
