package appstate

import (
	"github.com/ManuelReschke/TrafficWatch/app/models"
)

// State is everything one browser session knows about the signed-in user.
type State struct {
	CurrentUser *models.Profile
	Loading     bool
	AuthLoading bool
	Complaints  []models.Complaint
	Documents   []models.Document
}

// Initial is the state of a browser session before initialization ran.
func Initial() State {
	return State{Loading: true, AuthLoading: true}
}

// Action is a state transition handled by Reduce.
type Action interface {
	apply(State) State
}

type SetUser struct{ User *models.Profile }
type SetLoading struct{ Loading bool }
type SetAuthLoading struct{ Loading bool }
type SetComplaints struct{ Complaints []models.Complaint }
type AddComplaint struct{ Complaint models.Complaint }
type UpdateComplaint struct{ Complaint models.Complaint }
type SetDocuments struct{ Documents []models.Document }
type AddDocument struct{ Document models.Document }
type ReplaceDocument struct{ Document models.Document }
type Logout struct{}

func (a SetUser) apply(s State) State {
	s.CurrentUser = a.User
	s.Loading = false
	return s
}

func (a SetLoading) apply(s State) State {
	s.Loading = a.Loading
	return s
}

func (a SetAuthLoading) apply(s State) State {
	s.AuthLoading = a.Loading
	return s
}

func (a SetComplaints) apply(s State) State {
	s.Complaints = append([]models.Complaint(nil), a.Complaints...)
	return s
}

func (a AddComplaint) apply(s State) State {
	s.Complaints = append(append([]models.Complaint(nil), s.Complaints...), a.Complaint)
	return s
}

func (a UpdateComplaint) apply(s State) State {
	next := make([]models.Complaint, len(s.Complaints))
	for i, c := range s.Complaints {
		if c.ID == a.Complaint.ID {
			c = a.Complaint
		}
		next[i] = c
	}
	s.Complaints = next
	return s
}

func (a SetDocuments) apply(s State) State {
	s.Documents = append([]models.Document(nil), a.Documents...)
	return s
}

func (a AddDocument) apply(s State) State {
	s.Documents = append(append([]models.Document(nil), s.Documents...), a.Document)
	return s
}

// ReplaceDocument swaps the row with the same id, or appends it when absent.
func (a ReplaceDocument) apply(s State) State {
	next := make([]models.Document, 0, len(s.Documents)+1)
	found := false
	for _, d := range s.Documents {
		if d.ID == a.Document.ID {
			d = a.Document
			found = true
		}
		next = append(next, d)
	}
	if !found {
		next = append(next, a.Document)
	}
	s.Documents = next
	return s
}

func (Logout) apply(s State) State {
	s.CurrentUser = nil
	s.Complaints = nil
	s.Documents = nil
	s.Loading = false
	s.AuthLoading = false
	return s
}

// Reduce returns the state after action. It never mutates s.
func Reduce(s State, action Action) State {
	if action == nil {
		return s
	}
	return action.apply(s)
}
