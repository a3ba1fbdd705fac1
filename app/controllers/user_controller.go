package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/categories"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
)

const (
	recentComplaints = 5
	expiryWarning    = 30 * 24 * time.Hour
)

var (
	complaintStatuses   = []string{models.COMPLAINT_PENDING, models.COMPLAINT_RESOLVED, models.COMPLAINT_REJECTED}
	complaintPriorities = []string{models.PRIORITY_LOW, models.PRIORITY_MEDIUM, models.PRIORITY_HIGH}
)

// documentSlot is one document type on the dashboard, uploaded or not.
type documentSlot struct {
	Type     string
	Document *models.Document
}

func latest(list []models.Complaint, n int) []models.Complaint {
	list = domain.SortComplaints(list, domain.SortByDate, domain.OrderDesc)
	if len(list) > n {
		list = list[:n]
	}
	return list
}

// HandleDashboard renders the citizen dashboard from the session state.
func HandleDashboard(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	state := b.Store.Snapshot()
	user := state.CurrentUser
	if user == nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	mine := b.Domain.ComplaintsByUser(user.ID)
	slots := make([]documentSlot, 0, len(models.DocumentTypes))
	for _, t := range models.DocumentTypes {
		doc, _ := b.Domain.DocumentByType(t)
		slots = append(slots, documentSlot{Type: t, Document: doc})
	}

	return render(c, "dashboard", "Dashboard", fiber.Map{
		"Loading":       state.Loading,
		"Plate":         user.VehiclePlate,
		"Stats":         domain.Stats(mine),
		"MyComplaints":  latest(mine, recentComplaints),
		"AgainstMe":     latest(b.Domain.ComplaintsAgainstPlate(user.VehiclePlate), recentComplaints),
		"DocumentSlots": slots,
		"Expiring":      domain.ExpiringSoon(b.Domain.DocumentsByUser(user.ID), time.Now(), expiryWarning),
	})
}

// complaintListData parses filter and sort query parameters and applies
// them to list.
func complaintListData(c *fiber.Ctx, list []models.Complaint, isAdmin bool) fiber.Map {
	var filter domain.ComplaintFilter
	if err := c.QueryParser(&filter); err != nil {
		filter = domain.ComplaintFilter{}
	}
	sortBy := c.Query("sort", domain.SortByDate)
	order := c.Query("order", domain.OrderDesc)

	filtered := domain.FilterComplaints(list, filter)
	return fiber.Map{
		"Stats":      domain.Stats(list),
		"Complaints": domain.SortComplaints(filtered, sortBy, order),
		"Filter":     filter,
		"Sort":       sortBy,
		"Order":      order,
		"Statuses":   complaintStatuses,
		"Priorities": complaintPriorities,
		"Categories": categories.ForRole(isAdmin),
	}
}

func HandleMyComplaints(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	user := b.Auth.CurrentUser()
	if user == nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if err := b.Domain.FetchComplaints(c.UserContext()); err != nil {
		b.Toasts.Error(domain.UserMessage(err))
	}
	return render(c, "complaints", "My complaints", complaintListData(c, b.Domain.ComplaintsByUser(user.ID), false))
}

// HandleComplaintDetail shows one complaint. Admins get the review form.
func HandleComplaintDetail(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	user := b.Auth.CurrentUser()
	back := "/my-complaints"
	if user.IsAdmin() {
		back = "/admin/complaints"
	}

	id, ok := paramID(c)
	if !ok {
		return redirectWithError(c, back, domain.UserMessage(domain.ErrNotFound))
	}
	complaint, err := b.Domain.ComplaintByID(c.UserContext(), id)
	if err != nil {
		return redirectWithError(c, back, domain.UserMessage(err))
	}
	return render(c, "complaint", complaint.Title, fiber.Map{
		"Complaint": complaint,
		"Statuses":  complaintStatuses,
		"Back":      back,
	})
}
