package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/categories"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/upload"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// HandleSubmitComplaint serves the report form for citizens and officers.
// Officers post to the admin route and may pick the official categories.
func HandleSubmitComplaint(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	isAdmin := usercontext.IsAdmin(c)
	action := "/submit-complaint"
	if isAdmin {
		action = "/admin/submit-complaint"
	}
	data := fiber.Map{
		"Action":     action,
		"Categories": categories.ForRole(isAdmin),
		"Priorities": complaintPriorities,
		"Form":       domain.ComplaintInput{Priority: models.PRIORITY_LOW},
	}

	if c.Method() != fiber.MethodPost {
		return render(c, "submit_complaint", "Report a violation", data)
	}

	var in domain.ComplaintInput
	if err := c.BodyParser(&in); err != nil {
		return redirectWithError(c, action, "Invalid form submission")
	}
	if fh, err := c.FormFile("image"); err == nil && fh.Size > 0 {
		image, err := readFormFile(fh, upload.MaxEvidenceSize)
		if err != nil {
			return redirectWithError(c, action, "The photo could not be read. Please try again.")
		}
		in.ImageName, in.Image = fh.Filename, image
	}

	complaint, err := b.Domain.SubmitComplaintWithRetry(c.UserContext(), in)
	if err != nil {
		in.Image = nil
		data["Form"] = in
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			data["Errors"] = verr.Fields
			c.Status(fiber.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrRestrictedCategory):
			data["Errors"] = map[string]string{"category": domain.UserMessage(err)}
			c.Status(fiber.StatusForbidden)
		case domain.Retryable(err):
			c.Status(fiber.StatusServiceUnavailable)
		default:
			data["Errors"] = map[string]string{"image": domain.UserMessage(err)}
			c.Status(fiber.StatusUnprocessableEntity)
		}
		return render(c, "submit_complaint", "Report a violation", data)
	}

	if isAdmin {
		return c.Redirect("/admin/complaints", fiber.StatusSeeOther)
	}
	return c.Redirect("/complaint/"+itoa(complaint.ID), fiber.StatusSeeOther)
}
