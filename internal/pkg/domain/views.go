package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
)

// FilterAll disables a filter.
const FilterAll = "all"

// Sort keys and orders accepted by SortComplaints.
const (
	SortByDate     = "date"
	SortByPriority = "priority"
	SortByStatus   = "status"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ComplaintFilter narrows a complaint list. Empty or "all" fields match everything.
type ComplaintFilter struct {
	Search   string `query:"search"`
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Category string `query:"category"`
}

// ComplaintStats counts complaints per status.
type ComplaintStats struct {
	Total    int
	Pending  int
	Resolved int
	Rejected int
}

var (
	priorityRank = map[string]int{models.PRIORITY_HIGH: 3, models.PRIORITY_MEDIUM: 2, models.PRIORITY_LOW: 1}
	statusRank   = map[string]int{models.COMPLAINT_PENDING: 3, models.COMPLAINT_RESOLVED: 2, models.COMPLAINT_REJECTED: 1}
)

func matches(value, want string) bool {
	return want == "" || want == FilterAll || value == want
}

// FilterComplaints returns the complaints matching f, keeping their order.
func FilterComplaints(list []models.Complaint, f ComplaintFilter) []models.Complaint {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Complaint, 0, len(list))
	for _, c := range list {
		if !matches(c.Status, f.Status) || !matches(c.Priority, f.Priority) || !matches(c.Category, f.Category) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(c.Title), term) &&
			!strings.Contains(strings.ToLower(c.Description), term) &&
			!strings.Contains(strings.ToLower(c.OffenderPlate), term) &&
			!strings.Contains(strings.ToLower(c.ReporterName()), term) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortComplaints returns a sorted copy. Unknown keys sort by date; any
// order other than "asc" is descending.
func SortComplaints(list []models.Complaint, by, order string) []models.Complaint {
	out := append([]models.Complaint(nil), list...)
	less := func(a, b models.Complaint) bool {
		switch by {
		case SortByPriority:
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		case SortByStatus:
			return statusRank[a.Status] < statusRank[b.Status]
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == OrderAsc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

// Stats counts complaints by status.
func Stats(list []models.Complaint) ComplaintStats {
	stats := ComplaintStats{Total: len(list)}
	for _, c := range list {
		switch c.Status {
		case models.COMPLAINT_PENDING:
			stats.Pending++
		case models.COMPLAINT_RESOLVED:
			stats.Resolved++
		case models.COMPLAINT_REJECTED:
			stats.Rejected++
		}
	}
	return stats
}

// ComplaintsByUser returns the loaded complaints filed by userID.
func (c *Controller) ComplaintsByUser(userID string) []models.Complaint {
	var out []models.Complaint
	for _, complaint := range c.store.Snapshot().Complaints {
		if complaint.ReportedBy == userID {
			out = append(out, complaint)
		}
	}
	return out
}

// ComplaintsAgainstPlate returns the loaded complaints filed against plate.
func (c *Controller) ComplaintsAgainstPlate(plate string) []models.Complaint {
	plate = models.NormalizePlate(plate)
	if plate == "" {
		return nil
	}
	var out []models.Complaint
	for _, complaint := range c.store.Snapshot().Complaints {
		if models.NormalizePlate(complaint.OffenderPlate) == plate {
			out = append(out, complaint)
		}
	}
	return out
}

// DocumentsByUser returns the loaded documents owned by userID.
func (c *Controller) DocumentsByUser(userID string) []models.Document {
	var out []models.Document
	for _, doc := range c.store.Snapshot().Documents {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	return out
}

// DocumentByType returns the current user's document of the given type.
func (c *Controller) DocumentByType(docType string) (*models.Document, bool) {
	user := c.store.Snapshot().CurrentUser
	if user == nil {
		return nil, false
	}
	for _, doc := range c.DocumentsByUser(user.ID) {
		if doc.DocumentType == docType {
			found := doc
			return &found, true
		}
	}
	return nil, false
}

// ExpiringSoon returns approved documents that expire within the window.
func ExpiringSoon(docs []models.Document, now time.Time, window time.Duration) []models.Document {
	var out []models.Document
	for _, doc := range docs {
		if doc.Status != models.DOC_APPROVED {
			continue
		}
		if doc.ExpiryDate.After(now) && doc.ExpiryDate.Sub(now) <= window {
			out = append(out, doc)
		}
	}
	return out
}
