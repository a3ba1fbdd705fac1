package appstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrafficWatch/app/models"
)

func TestSetUserEndsLoading(t *testing.T) {
	s := Reduce(Initial(), SetUser{User: &models.Profile{ID: "u1"}})
	assert.False(t, s.Loading)
	assert.True(t, s.AuthLoading)
	assert.Equal(t, "u1", s.CurrentUser.ID)
}

func TestAddComplaintAppendsWithoutMutatingInput(t *testing.T) {
	before := Reduce(Initial(), SetComplaints{Complaints: []models.Complaint{{ID: 2}, {ID: 1}}})
	after := Reduce(before, AddComplaint{Complaint: models.Complaint{ID: 3}})

	require.Len(t, before.Complaints, 2)
	require.Len(t, after.Complaints, 3)
	assert.Equal(t, uint(3), after.Complaints[2].ID)
}

func TestUpdateComplaintReplacesByID(t *testing.T) {
	s := Reduce(Initial(), SetComplaints{Complaints: []models.Complaint{{ID: 1, Status: models.COMPLAINT_PENDING}, {ID: 2}}})
	s = Reduce(s, UpdateComplaint{Complaint: models.Complaint{ID: 1, Status: models.COMPLAINT_RESOLVED}})
	assert.Equal(t, models.COMPLAINT_RESOLVED, s.Complaints[0].Status)
	assert.Equal(t, uint(2), s.Complaints[1].ID)
}

func TestReplaceDocument(t *testing.T) {
	s := Reduce(Initial(), SetDocuments{Documents: []models.Document{{ID: 7, Status: models.DOC_REJECTED}}})
	s = Reduce(s, ReplaceDocument{Document: models.Document{ID: 7, Status: models.DOC_PENDING}})
	require.Len(t, s.Documents, 1)
	assert.Equal(t, models.DOC_PENDING, s.Documents[0].Status)

	s = Reduce(s, ReplaceDocument{Document: models.Document{ID: 8}})
	assert.Len(t, s.Documents, 2)
}

func TestLogoutClearsUserData(t *testing.T) {
	s := Reduce(Initial(),
		SetUser{User: &models.Profile{ID: "u1"}})
	s = Reduce(s, SetComplaints{Complaints: []models.Complaint{{ID: 1}}})
	s = Reduce(s, AddDocument{Document: models.Document{ID: 1}})
	s = Reduce(s, Logout{})

	assert.Nil(t, s.CurrentUser)
	assert.Empty(t, s.Complaints)
	assert.Empty(t, s.Documents)
	assert.False(t, s.AuthLoading)
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	store := NewStore()
	var seen []State
	unsubscribe := store.Subscribe(func(s State) { seen = append(seen, s) })

	store.Dispatch(SetAuthLoading{Loading: false})
	unsubscribe()
	store.Dispatch(SetLoading{Loading: false})

	require.Len(t, seen, 1)
	assert.False(t, seen[0].AuthLoading)
	assert.False(t, store.Snapshot().Loading)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			store.Dispatch(AddComplaint{Complaint: models.Complaint{ID: id}})
		}(uint(i))
	}
	wg.Wait()
	assert.Len(t, store.Snapshot().Complaints, 50)
}
