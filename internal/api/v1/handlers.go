package apiv1

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// APIServer implements the ServerInterface on top of the caller's
// session bundle, so the JSON API sees exactly what the pages show.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}


// writeError maps a domain error onto a status code and JSON body.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	status, code := fiber.StatusInternalServerError, "internal"
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(Error{
			Error:   "validation_failed",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, domain.ErrNotAuthenticated):
		status, code = fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrRestrictedCategory):
		status, code = fiber.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "not_found"
	case domain.Retryable(err):
		status, code = fiber.StatusServiceUnavailable, "unavailable"
	default:
		log.Errorf("[API] %v", err)
	}
	return c.Status(status).JSON(Error{Error: code, Message: domain.UserMessage(err)})
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetMe returns the signed-in profile.
func (s *APIServer) GetMe(c *fiber.Ctx) error {
	b := appcontext.FromCtx(c)
	if b == nil {
		return writeError(c, domain.ErrUnavailable)
	}
	return c.JSON(Me{
		User:    b.Store.Snapshot().CurrentUser,
		IsAdmin: usercontext.IsAdmin(c),
	})
}

// ListComplaints returns the complaints visible to the caller, filtered and sorted.
func (s *APIServer) ListComplaints(c *fiber.Ctx, params ListComplaintsParams) error {
	b := appcontext.FromCtx(c)
	if b == nil {
		return writeError(c, domain.ErrUnavailable)
	}
	if err := b.Domain.FetchComplaints(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	list := domain.FilterComplaints(b.Store.Snapshot().Complaints, domain.ComplaintFilter{
		Status:   params.Status,
		Category: params.Category,
		Priority: params.Priority,
		Search:   params.Search,
	})
	list = domain.SortComplaints(list, params.Sort, params.Order)
	return c.JSON(ComplaintList{Complaints: list, Total: len(list)})
}

// CreateComplaint files a complaint from a JSON body. Evidence images are
// only accepted through the web form.
func (s *APIServer) CreateComplaint(c *fiber.Ctx) error {
	b := appcontext.FromCtx(c)
	if b == nil {
		return writeError(c, domain.ErrUnavailable)
	}
	var in domain.ComplaintInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: "Invalid request body"})
	}
	complaint, err := b.Domain.SubmitComplaint(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(complaint)
}

// GetComplaint returns one complaint the caller may see.
func (s *APIServer) GetComplaint(c *fiber.Ctx, id uint) error {
	b := appcontext.FromCtx(c)
	if b == nil {
		return writeError(c, domain.ErrUnavailable)
	}
	complaint, err := b.Domain.ComplaintByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(complaint)
}

// ListDocuments returns the caller's documents, or every document for admins.
func (s *APIServer) ListDocuments(c *fiber.Ctx) error {
	b := appcontext.FromCtx(c)
	if b == nil {
		return writeError(c, domain.ErrUnavailable)
	}
	var err error
	uc := usercontext.GetUserContext(c)
	if uc.IsAdmin {
		err = b.Domain.FetchAllDocuments(c.UserContext())
	} else {
		err = b.Domain.FetchDocuments(c.UserContext(), uc.UserID)
	}
	if err != nil {
		return writeError(c, err)
	}
	docs := b.Store.Snapshot().Documents
	return c.JSON(DocumentList{Documents: docs, Total: len(docs)})
}
