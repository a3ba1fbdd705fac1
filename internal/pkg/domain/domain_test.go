package domain

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/database"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/retry"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/toast"
)

var (
	citizen = &models.Profile{ID: "u-citizen", FullName: "Ama Mensah", Email: "ama@example.com", PhoneNumber: "0241234567", VehiclePlate: "GR1234", Role: models.ROLE_USER}
	officer = &models.Profile{ID: "u-officer", FullName: "Kwesi Owusu", Email: "kwesi@example.com", BadgeID: "MTTD-17", Role: models.ROLE_ADMIN}
)

type countingBlobs struct {
	*platform.MemoryBlobStore
	mu      sync.Mutex
	uploads int
}

func (b *countingBlobs) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error {
	b.mu.Lock()
	b.uploads++
	b.mu.Unlock()
	return b.MemoryBlobStore.Upload(ctx, bucket, path, body, size, contentType)
}

type countingComplaints struct {
	repository.ComplaintRepository
	mu      sync.Mutex
	creates int
	fail    error
	failFor int // fail only the first failFor creates when > 0
}

func (r *countingComplaints) Create(ctx context.Context, complaint *models.Complaint) error {
	r.mu.Lock()
	r.creates++
	fail := r.fail
	if r.failFor > 0 && r.creates > r.failFor {
		fail = nil
	}
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.ComplaintRepository.Create(ctx, complaint)
}

type harness struct {
	ctrl       *Controller
	store      *appstate.Store
	toasts     *toast.Queue
	repos      *repository.Repositories
	complaints *countingComplaints
	blobs      *countingBlobs
}

func newHarness(t *testing.T, actor *models.Profile) *harness {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "domain.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	repos := repository.NewRepositories(db)
	ctx := context.Background()
	for _, p := range []*models.Profile{citizen, officer} {
		cp := *p
		require.NoError(t, repos.Profile.Create(ctx, &cp))
	}

	h := &harness{
		store:      appstate.NewStore(),
		toasts:     toast.NewQueue(),
		repos:      repos,
		complaints: &countingComplaints{ComplaintRepository: repos.Complaint},
		blobs:      &countingBlobs{MemoryBlobStore: platform.NewMemoryBlobStore("https://backend.local")},
	}
	t.Cleanup(h.toasts.Close)
	h.ctrl = NewController(h.store, h.complaints, repos.Document, h.blobs, h.toasts)
	h.ctrl.SetRetryPolicy(retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, AttemptTimeout: time.Second})
	if actor != nil {
		user := *actor
		h.store.Dispatch(appstate.SetUser{User: &user})
	}
	return h
}

func (h *harness) messages(severity toast.Severity) []string {
	var out []string
	for _, t := range h.toasts.List() {
		if t.Severity == severity {
			out = append(out, t.Message)
		}
	}
	return out
}

func hornComplaint() ComplaintInput {
	return ComplaintInput{
		Title:         "Illegal horn near school",
		Description:   "Driver kept honking outside the primary school gate at 7am.",
		Location:      "Ring Road, Accra",
		Category:      "illegal_horn",
		OffenderPlate: "ABC123",
	}
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func TestSubmitComplaintOfflineGivesUpAfterThreeAttempts(t *testing.T) {
	h := newHarness(t, citizen)
	h.complaints.fail = errors.New("dial tcp: connection refused")

	complaint, err := h.ctrl.SubmitComplaintWithRetry(context.Background(), hornComplaint())
	require.Error(t, err)
	assert.Nil(t, complaint)

	assert.Equal(t, 3, h.complaints.creates)
	assert.Len(t, h.messages(toast.Warning), 2)
	errs := h.messages(toast.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Submission failed after multiple attempts")
	assert.Empty(t, h.store.Snapshot().Complaints)
}

func TestSubmitComplaintSucceedsAfterTransientFailure(t *testing.T) {
	h := newHarness(t, citizen)
	h.complaints.fail = errors.New("i/o timeout")
	h.complaints.failFor = 1

	complaint, err := h.ctrl.SubmitComplaintWithRetry(context.Background(), hornComplaint())
	require.NoError(t, err)
	assert.Equal(t, 2, h.complaints.creates)
	assert.Equal(t, "ABC123", complaint.OffenderPlate)
	assert.Equal(t, models.PRIORITY_LOW, complaint.Priority)
	assert.Equal(t, models.SUBMITTED_BY_USER, complaint.SubmittedBy)
	assert.Equal(t, "Ama Mensah", complaint.ReporterName())
	assert.Contains(t, h.messages(toast.Success), "Complaint submitted successfully!")
	require.Len(t, h.store.Snapshot().Complaints, 1)
}

func TestRestrictedCategoryRejectedBeforeAnyNetworkCall(t *testing.T) {
	h := newHarness(t, citizen)
	in := hornComplaint()
	in.Category = "overspeeding"
	in.ImageName = "speed.png"
	in.Image = pngBytes(t)

	_, err := h.ctrl.SubmitComplaintWithRetry(context.Background(), in)
	assert.True(t, errors.Is(err, ErrRestrictedCategory))
	assert.Equal(t, 0, h.complaints.creates)
	assert.Equal(t, 0, h.blobs.uploads)
	assert.Empty(t, h.messages(toast.Warning))
	assert.Equal(t, []string{UserMessage(ErrRestrictedCategory)}, h.messages(toast.Error))
}

func TestOfficerMayFileOfficialCategory(t *testing.T) {
	h := newHarness(t, officer)
	in := hornComplaint()
	in.Category = "overspeeding"
	in.OffenderPlate = "gt 4455-21"
	in.Priority = models.PRIORITY_HIGH

	complaint, err := h.ctrl.SubmitComplaint(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.SUBMITTED_BY_ADMIN, complaint.SubmittedBy)
	assert.Equal(t, "GT445521", complaint.OffenderPlate)
}

func TestSubmitComplaintValidation(t *testing.T) {
	h := newHarness(t, citizen)
	in := hornComplaint()
	in.Title = "  "
	in.OffenderPlate = "X1"

	_, err := h.ctrl.SubmitComplaintWithRetry(context.Background(), in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Title is required", verr.Fields["title"])
	assert.Contains(t, verr.Fields, "offender_plate")
	assert.Equal(t, 0, h.complaints.creates)
	assert.Equal(t, []string{"Title is required"}, h.messages(toast.Error))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 900))))
	return buf.Bytes()
}

func TestSubmitComplaintStoresCompressedEvidence(t *testing.T) {
	h := newHarness(t, citizen)
	in := hornComplaint()
	in.ImageName = "horn.png"
	in.Image = pngBytes(t)

	complaint, err := h.ctrl.SubmitComplaint(context.Background(), in)
	require.NoError(t, err)

	keys := h.blobs.Keys(models.BUCKET_COMPLAINT_IMAGES)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "complaint-images/u-citizen/"))
	assert.True(t, strings.HasSuffix(keys[0], ".jpg"))
	assert.True(t, strings.HasSuffix(complaint.ImageURL, strings.TrimPrefix(keys[0], "complaint-images/")))

	path := strings.TrimPrefix(keys[0], models.BUCKET_COMPLAINT_IMAGES+"/")
	body, contentType, ok := h.blobs.Object(models.BUCKET_COMPLAINT_IMAGES, path)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", contentType)
	cfg, _, err := image.DecodeConfig(body)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
}

func TestReuploadOfRejectedDocumentKeepsID(t *testing.T) {
	h := newHarness(t, citizen)
	ctx := context.Background()
	expiry := time.Now().AddDate(1, 0, 0)

	first, err := h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_LICENSE, FileName: "license.pdf", Data: pdfBytes, ExpiryDate: expiry})
	require.NoError(t, err)
	assert.Equal(t, models.DOC_PENDING, first.Status)

	_, err = h.repos.Document.Review(ctx, first.ID, repository.DocumentReview{Status: models.DOC_REJECTED, Reason: "Photo is blurry", ReviewedBy: officer.ID, ReviewedAt: time.Now()})
	require.NoError(t, err)

	again, err := h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_LICENSE, FileName: "license-new.pdf", Data: pdfBytes, ExpiryDate: expiry.AddDate(0, 1, 0)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.DOC_PENDING, again.Status)
	assert.Empty(t, again.RejectionReason)
	assert.Nil(t, again.ReviewedBy)

	stored, err := h.repos.Document.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "license-new.pdf", stored.FileName)
	assert.Equal(t, models.DOC_PENDING, stored.Status)
	assert.Empty(t, stored.RejectionReason)

	docs := h.store.Snapshot().Documents
	require.Len(t, docs, 1)
	assert.Equal(t, "license-new.pdf", docs[0].FileName)
	assert.Len(t, h.blobs.Keys(models.BUCKET_USER_DOCUMENTS), 2)
}

func TestUploadDocumentChecks(t *testing.T) {
	h := newHarness(t, citizen)
	ctx := context.Background()
	future := time.Now().AddDate(0, 6, 0)

	_, err := h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_INSURANCE, FileName: "ins.pdf", Data: pdfBytes})
	assert.True(t, errors.Is(err, ErrExpiryRequired))

	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_INSURANCE, FileName: "ins.pdf", Data: pdfBytes, ExpiryDate: time.Now().AddDate(0, 0, -1)})
	assert.True(t, errors.Is(err, ErrExpiryInPast))

	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_INSURANCE, FileName: "ins.docx", Data: []byte("PK\x03\x04"), ExpiryDate: future})
	assert.Equal(t, "Please upload a PDF, JPEG, or PNG file", UserMessage(err))

	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: "passport", FileName: "p.pdf", Data: pdfBytes, ExpiryDate: future})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.Equal(t, 0, h.blobs.uploads)
}

type failingDocuments struct {
	repository.DocumentRepository
}

func (failingDocuments) Create(context.Context, *models.Document) error {
	return errors.New("dial tcp: connection refused")
}

func (failingDocuments) Update(context.Context, *models.Document) error {
	return errors.New("dial tcp: connection refused")
}

func TestFailedDocumentWriteRemovesUploadedFile(t *testing.T) {
	h := newHarness(t, citizen)
	ctx := context.Background()
	expiry := time.Now().AddDate(1, 0, 0)

	_, err := h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_LICENSE, FileName: "license.pdf", Data: pdfBytes, ExpiryDate: expiry})
	require.NoError(t, err)
	require.Len(t, h.blobs.Keys(models.BUCKET_USER_DOCUMENTS), 1)

	h.ctrl.documents = failingDocuments{DocumentRepository: h.repos.Document}

	// replacing the existing row
	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_LICENSE, FileName: "license-new.pdf", Data: pdfBytes, ExpiryDate: expiry})
	require.Error(t, err)
	// creating a new row
	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_INSURANCE, FileName: "ins.pdf", Data: pdfBytes, ExpiryDate: expiry})
	require.Error(t, err)

	assert.Equal(t, 3, h.blobs.uploads)
	assert.Len(t, h.blobs.Keys(models.BUCKET_USER_DOCUMENTS), 1)
}

func TestFailedComplaintWriteRemovesEvidence(t *testing.T) {
	h := newHarness(t, citizen)
	h.complaints.fail = errors.New("dial tcp: connection refused")
	in := hornComplaint()
	in.ImageName = "horn.png"
	in.Image = pngBytes(t)

	_, err := h.ctrl.SubmitComplaintWithRetry(context.Background(), in)
	require.Error(t, err)

	assert.Equal(t, 3, h.blobs.uploads)
	assert.Empty(t, h.blobs.Keys(models.BUCKET_COMPLAINT_IMAGES))
}

func TestReviewDocumentRequiresAdminAndReason(t *testing.T) {
	owner := newHarness(t, citizen)
	ctx := context.Background()
	doc, err := owner.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_ROADWORTHINESS, FileName: "rw.pdf", Data: pdfBytes, ExpiryDate: time.Now().AddDate(1, 0, 0)})
	require.NoError(t, err)

	_, err = owner.ctrl.ReviewDocument(ctx, doc.ID, models.DOC_APPROVED, "")
	assert.True(t, errors.Is(err, ErrForbidden))

	adminStore := appstate.NewStore()
	officerCopy := *officer
	adminStore.Dispatch(appstate.SetUser{User: &officerCopy})
	admin := NewController(adminStore, owner.complaints, owner.repos.Document, owner.blobs, owner.toasts)

	_, err = admin.ReviewDocumentWithRetry(ctx, doc.ID, models.DOC_REJECTED, " ")
	assert.True(t, errors.Is(err, ErrReasonRequired))
	assert.Contains(t, owner.messages(toast.Error), "Please provide a reason for rejection")

	reviewed, err := admin.ReviewDocumentWithRetry(ctx, doc.ID, models.DOC_APPROVED, "ignored")
	require.NoError(t, err)
	assert.Equal(t, models.DOC_APPROVED, reviewed.Status)
	assert.Empty(t, reviewed.RejectionReason)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, officer.ID, *reviewed.ReviewedBy)
	assert.Contains(t, owner.messages(toast.Success), "Document approved.")
}

func TestUpdateComplaintStampsResolvedAt(t *testing.T) {
	h := newHarness(t, officer)
	ctx := context.Background()
	complaint, err := h.ctrl.SubmitComplaint(ctx, hornComplaint())
	require.NoError(t, err)

	resolved, err := h.ctrl.UpdateComplaint(ctx, complaint.ID, ComplaintUpdate{Status: models.COMPLAINT_RESOLVED, ResolutionNotes: "Driver fined"})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "Driver fined", resolved.ResolutionNotes)

	reopened, err := h.ctrl.UpdateComplaint(ctx, complaint.ID, ComplaintUpdate{Status: models.COMPLAINT_PENDING})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)

	state := h.store.Snapshot().Complaints
	require.Len(t, state, 1)
	assert.Equal(t, models.COMPLAINT_PENDING, state[0].Status)

	_, err = h.ctrl.UpdateComplaint(ctx, complaint.ID, ComplaintUpdate{Status: "closed"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestCitizenSeesOwnAndPlateComplaints(t *testing.T) {
	reporter := newHarness(t, officer)
	ctx := context.Background()

	against := hornComplaint()
	against.OffenderPlate = "GR-1234"
	_, err := reporter.ctrl.SubmitComplaint(ctx, against)
	require.NoError(t, err)
	_, err = reporter.ctrl.SubmitComplaint(ctx, hornComplaint())
	require.NoError(t, err)

	viewer := NewController(appstate.NewStore(), reporter.complaints, reporter.repos.Document, reporter.blobs, reporter.toasts)
	user := *citizen
	viewer.store.Dispatch(appstate.SetUser{User: &user})

	require.NoError(t, viewer.FetchComplaints(ctx))
	list := viewer.store.Snapshot().Complaints
	require.Len(t, list, 1)
	assert.Equal(t, "GR1234", list[0].OffenderPlate)
	assert.Len(t, viewer.ComplaintsAgainstPlate("gr 1234"), 1)
	assert.Empty(t, viewer.ComplaintsByUser(citizen.ID))

	all := reporter.store.Snapshot().Complaints
	var hidden uint
	for _, c := range all {
		if c.OffenderPlate == "ABC123" {
			hidden = c.ID
		}
	}
	_, err = viewer.ComplaintByID(ctx, hidden)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, reporter.ctrl.FetchComplaints(ctx))
	assert.Len(t, reporter.store.Snapshot().Complaints, 2)
}

func TestSignedOutControllerRefusesWork(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.SubmitComplaint(context.Background(), hornComplaint())
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.True(t, errors.Is(h.ctrl.FetchComplaints(context.Background()), ErrNotAuthenticated))
}

func TestLoadUserDataFillsState(t *testing.T) {
	h := newHarness(t, citizen)
	ctx := context.Background()
	_, err := h.ctrl.SubmitComplaint(ctx, hornComplaint())
	require.NoError(t, err)
	_, err = h.ctrl.UploadDocument(ctx, DocumentInput{Type: models.DOC_LICENSE, FileName: "l.pdf", Data: pdfBytes, ExpiryDate: time.Now().AddDate(1, 0, 0)})
	require.NoError(t, err)

	h.store.Dispatch(appstate.SetComplaints{}, appstate.SetDocuments{})
	user := *citizen
	h.ctrl.LoadUserData(ctx, &user)

	state := h.store.Snapshot()
	assert.False(t, state.Loading)
	assert.Len(t, state.Complaints, 1)
	assert.Len(t, state.Documents, 1)
	doc, ok := h.ctrl.DocumentByType(models.DOC_LICENSE)
	require.True(t, ok)
	assert.Equal(t, "l.pdf", doc.FileName)
}
