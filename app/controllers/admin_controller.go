package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
)

const latestPending = 10

var documentTabs = []string{models.DOC_PENDING, models.DOC_APPROVED, models.DOC_REJECTED, domain.FilterAll}

// AdminController handles the officer pages. Counters come straight from
// the repositories; lists come from the officer's session state.
type AdminController struct {
	repos *repository.Repositories
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{
		repos: repos,
	}
}

// refresh reloads every complaint and document so officers see reports
// filed in other sessions.
func (ac *AdminController) refresh(c *fiber.Ctx, b *appcontext.Bundle) {
	if err := b.Domain.FetchComplaints(c.UserContext()); err != nil {
		log.Warnf("[Admin] Could not refresh complaints: %v", err)
		b.Toasts.Error(domain.UserMessage(err))
	}
	if err := b.Domain.FetchAllDocuments(c.UserContext()); err != nil {
		log.Warnf("[Admin] Could not refresh documents: %v", err)
	}
}

func (ac *AdminController) stats(c *fiber.Ctx, fallback []models.Complaint) domain.ComplaintStats {
	counts, err := ac.repos.Complaint.CountByStatus(c.UserContext())
	if err != nil {
		log.Warnf("[Admin] Falling back to loaded complaints for stats: %v", err)
		return domain.Stats(fallback)
	}
	stats := domain.ComplaintStats{
		Pending:  int(counts[models.COMPLAINT_PENDING]),
		Resolved: int(counts[models.COMPLAINT_RESOLVED]),
		Rejected: int(counts[models.COMPLAINT_REJECTED]),
	}
	stats.Total = stats.Pending + stats.Resolved + stats.Rejected
	return stats
}

// HandleDashboard renders the admin dashboard
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	ac.refresh(c, b)
	state := b.Store.Snapshot()

	users, err := ac.repos.Profile.Count(c.UserContext())
	if err != nil {
		log.Warnf("[Admin] Could not count users: %v", err)
	}
	official := 0
	for i := range state.Complaints {
		if state.Complaints[i].IsOfficial() {
			official++
		}
	}
	pendingDocs := 0
	for _, doc := range state.Documents {
		if doc.Status == models.DOC_PENDING {
			pendingDocs++
		}
	}
	pending := domain.FilterComplaints(state.Complaints, domain.ComplaintFilter{Status: models.COMPLAINT_PENDING})

	return render(c, "admin/dashboard", "Officer dashboard", fiber.Map{
		"Stats":            ac.stats(c, state.Complaints),
		"Users":            users,
		"OfficialCount":    official,
		"PendingDocuments": pendingDocs,
		"Pending":          latest(pending, latestPending),
	})
}

// HandleComplaints lists every complaint with filters
func (ac *AdminController) HandleComplaints(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	ac.refresh(c, b)
	return render(c, "admin/complaints", "All complaints", complaintListData(c, b.Store.Snapshot().Complaints, true))
}

// HandleComplaintUpdate records the officer's decision on a complaint
func (ac *AdminController) HandleComplaintUpdate(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c)
	if !ok {
		return redirectWithError(c, "/admin/complaints", domain.UserMessage(domain.ErrNotFound))
	}
	var upd domain.ComplaintUpdate
	if err := c.BodyParser(&upd); err != nil {
		return redirectWithError(c, "/complaint/"+itoa(id), "Invalid form submission")
	}
	_, _ = b.Domain.UpdateComplaintWithRetry(c.UserContext(), id, upd)
	return c.Redirect("/complaint/"+itoa(id), fiber.StatusSeeOther)
}

// HandleDocuments lists documents for verification, pending first by default
func (ac *AdminController) HandleDocuments(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	ac.refresh(c, b)

	status := c.Query("status", models.DOC_PENDING)
	var docs []models.Document
	for _, doc := range b.Store.Snapshot().Documents {
		if status == domain.FilterAll || doc.Status == status {
			docs = append(docs, doc)
		}
	}
	return render(c, "admin/documents", "Document verification", fiber.Map{
		"Documents": docs,
		"Status":    status,
		"Tabs":      documentTabs,
	})
}

func (ac *AdminController) HandleDocumentApprove(c *fiber.Ctx) error {
	return ac.review(c, models.DOC_APPROVED)
}

func (ac *AdminController) HandleDocumentReject(c *fiber.Ctx) error {
	return ac.review(c, models.DOC_REJECTED)
}

func (ac *AdminController) review(c *fiber.Ctx, status string) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	id, ok := paramID(c)
	if !ok {
		return redirectWithError(c, "/admin/documents", domain.UserMessage(domain.ErrNotFound))
	}
	_, _ = b.Domain.ReviewDocumentWithRetry(c.UserContext(), id, status, c.FormValue("reason"))
	return c.Redirect("/admin/documents", fiber.StatusSeeOther)
}
