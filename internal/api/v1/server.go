package apiv1

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines model for Error.
type Error struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Me defines model for Me.
type Me struct {
	User    *models.Profile `json:"user"`
	IsAdmin bool            `json:"is_admin"`
}

// ComplaintList defines model for ComplaintList.
type ComplaintList struct {
	Complaints []models.Complaint `json:"complaints"`
	Total      int                `json:"total"`
}

// DocumentList defines model for DocumentList.
type DocumentList struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

// ListComplaintsParams defines parameters for ListComplaints.
type ListComplaintsParams struct {
	Status   string `query:"status"`
	Category string `query:"category"`
	Priority string `query:"priority"`
	Search   string `query:"search"`
	Sort     string `query:"sort"`
	Order    string `query:"order"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /me)
	GetMe(c *fiber.Ctx) error
	// (GET /complaints)
	ListComplaints(c *fiber.Ctx, params ListComplaintsParams) error
	// (POST /complaints)
	CreateComplaint(c *fiber.Ctx) error
	// (GET /complaints/{id})
	GetComplaint(c *fiber.Ctx, id uint) error
	// (GET /documents)
	ListDocuments(c *fiber.Ctx) error
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

func (siw *ServerInterfaceWrapper) GetMe(c *fiber.Ctx) error {
	return siw.Handler.GetMe(c)
}

func (siw *ServerInterfaceWrapper) ListComplaints(c *fiber.Ctx) error {
	var params ListComplaintsParams
	if err := c.QueryParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: "Invalid query parameters"})
	}
	return siw.Handler.ListComplaints(c, params)
}

func (siw *ServerInterfaceWrapper) CreateComplaint(c *fiber.Ctx) error {
	return siw.Handler.CreateComplaint(c)
}

func (siw *ServerInterfaceWrapper) GetComplaint(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: "Invalid format for parameter id"})
	}
	return siw.Handler.GetComplaint(c, uint(id))
}

func (siw *ServerInterfaceWrapper) ListDocuments(c *fiber.Ctx) error {
	return siw.Handler.ListDocuments(c)
}

// RegisterHandlers adds each server route to the router. Everything except
// /ping needs a signed-in session.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.Get("/ping", wrapper.GetPing)
	router.Get("/me", middleware.RequireAPISessionAuth, wrapper.GetMe)
	router.Get("/complaints", middleware.RequireAPISessionAuth, wrapper.ListComplaints)
	router.Post("/complaints", middleware.RequireAPISessionAuth, wrapper.CreateComplaint)
	router.Get("/complaints/:id", middleware.RequireAPISessionAuth, wrapper.GetComplaint)
	router.Get("/documents", middleware.RequireAPISessionAuth, wrapper.ListDocuments)
}
