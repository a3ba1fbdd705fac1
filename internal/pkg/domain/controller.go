package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/categories"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/evidence"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/retry"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/toast"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/upload"
)

// ComplaintInput is a new complaint as entered in the form.
type ComplaintInput struct {
	Title         string `form:"title" json:"title" validate:"required,max=200"`
	Description   string `form:"description" json:"description" validate:"required"`
	Location      string `form:"location" json:"location" validate:"required,max=255"`
	Category      string `form:"category" json:"category" validate:"required"`
	OffenderPlate string `form:"offender_plate" json:"offender_plate" validate:"required,plate"`
	Priority      string `form:"priority" json:"priority" validate:"omitempty,oneof=low medium high"`

	ImageName string `form:"-" json:"-" validate:"-"`
	Image     []byte `form:"-" json:"-" validate:"-"`
}

// ComplaintUpdate holds an admin's decision on a complaint.
type ComplaintUpdate struct {
	Status          string `form:"status" validate:"required,oneof=pending resolved rejected"`
	AdminComments   string `form:"admin_comments" validate:"max=5000"`
	ResolutionNotes string `form:"resolution_notes" validate:"max=5000"`
}

// DocumentInput is an uploaded supporting document.
type DocumentInput struct {
	Type       string
	FileName   string
	Data       []byte
	ExpiryDate time.Time
}

var formMessages = map[string]struct{ field, message string }{
	"Title":           {"title", "Title is required"},
	"Description":     {"description", "Description is required"},
	"Location":        {"location", "Location is required"},
	"Category":        {"category", "Please select a category"},
	"OffenderPlate":   {"offender_plate", "Please enter a valid vehicle plate number (6-8 letters or digits)"},
	"Priority":        {"priority", "Please select a valid priority"},
	"Status":          {"status", "Please select a valid status"},
	"AdminComments":   {"admin_comments", "Comments are too long"},
	"ResolutionNotes": {"resolution_notes", "Resolution notes are too long"},
}

func validateForm(v interface{}) error {
	err := models.Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := map[string]string{}
	for _, fe := range verrs {
		if m, ok := formMessages[fe.StructField()]; ok {
			fields[m.field] = m.message
		}
	}
	return &ValidationError{Fields: fields}
}

// Controller owns complaints and documents for one browser session and
// keeps them in the application state.
type Controller struct {
	store      *appstate.Store
	complaints repository.ComplaintRepository
	documents  repository.DocumentRepository
	blobs      platform.BlobStore
	toasts     *toast.Queue
	policy     retry.Policy
	now        func() time.Time
}

func NewController(store *appstate.Store, complaints repository.ComplaintRepository, documents repository.DocumentRepository, blobs platform.BlobStore, toasts *toast.Queue) *Controller {
	return &Controller{
		store:      store,
		complaints: complaints,
		documents:  documents,
		blobs:      blobs,
		toasts:     toasts,
		policy:     retry.DefaultPolicy(),
		now:        time.Now,
	}
}

// SetRetryPolicy replaces the backoff used by the *WithRetry operations.
func (c *Controller) SetRetryPolicy(p retry.Policy) {
	c.policy = p
}

func (c *Controller) actor() (*models.Profile, error) {
	user := c.store.Snapshot().CurrentUser
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (c *Controller) admin() (*models.Profile, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}

// LoadUserData fetches complaints and documents after sign-in. Failures are
// logged and never block the session.
func (c *Controller) LoadUserData(ctx context.Context, profile *models.Profile) {
	c.store.Dispatch(appstate.SetLoading{Loading: true})
	defer c.store.Dispatch(appstate.SetLoading{Loading: false})

	if err := c.FetchComplaints(ctx); err != nil {
		log.Warnf("[Domain] Could not load complaints for %s: %v", profile.ID, err)
	}
	var err error
	if profile.IsAdmin() {
		err = c.FetchAllDocuments(ctx)
	} else {
		err = c.FetchDocuments(ctx, profile.ID)
	}
	if err != nil {
		log.Warnf("[Domain] Could not load documents for %s: %v", profile.ID, err)
	}
}

// FetchComplaints loads every complaint the current user may see, newest first.
func (c *Controller) FetchComplaints(ctx context.Context) error {
	user, err := c.actor()
	if err != nil {
		return err
	}
	var list []models.Complaint
	if user.IsAdmin() {
		list, err = c.complaints.List(ctx)
	} else {
		list, err = c.complaints.ListVisibleTo(ctx, user.ID, user.VehiclePlate)
	}
	if err != nil {
		return remote("fetch complaints", err)
	}
	c.store.Dispatch(appstate.SetComplaints{Complaints: list})
	return nil
}

// ComplaintByID returns a complaint from state, or loads it when the
// current user may see it.
func (c *Controller) ComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}
	for _, complaint := range c.store.Snapshot().Complaints {
		if complaint.ID == id {
			found := complaint
			return &found, nil
		}
	}
	complaint, err := c.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, remote("fetch complaint", err)
	}
	if !canSee(user, complaint) {
		return nil, ErrNotFound
	}
	return complaint, nil
}

func canSee(user *models.Profile, complaint *models.Complaint) bool {
	if user.IsAdmin() || complaint.ReportedBy == user.ID {
		return true
	}
	plate := models.NormalizePlate(user.VehiclePlate)
	return plate != "" && plate == complaint.OffenderPlate
}

// SubmitComplaint files a complaint for the current user. Official-only
// categories are refused for non-admins before anything leaves the process.
func (c *Controller) SubmitComplaint(ctx context.Context, in ComplaintInput) (*models.Complaint, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}
	if categories.IsOfficial(in.Category) && !user.IsAdmin() {
		return nil, ErrRestrictedCategory
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.OffenderPlate = models.NormalizePlate(in.OffenderPlate)
	if err := validateForm(&in); err != nil {
		return nil, err
	}
	if !categories.IsKnown(in.Category) {
		return nil, invalid("category", "Please select a category")
	}
	if in.Priority == "" {
		in.Priority = models.PRIORITY_LOW
	}

	complaint := &models.Complaint{
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Category:      in.Category,
		OffenderPlate: in.OffenderPlate,
		ReportedBy:    user.ID,
		SubmittedBy:   models.SUBMITTED_BY_USER,
		Status:        models.COMPLAINT_PENDING,
		Priority:      in.Priority,
	}
	if user.IsAdmin() {
		complaint.SubmittedBy = models.SUBMITTED_BY_ADMIN
	}

	evidencePath := ""
	if len(in.Image) > 0 {
		if evidencePath, err = c.attachEvidence(ctx, user.ID, in, complaint); err != nil {
			return nil, err
		}
	}

	if err := c.complaints.Create(ctx, complaint); err != nil {
		if evidencePath != "" {
			c.discardBlob(ctx, models.BUCKET_COMPLAINT_IMAGES, evidencePath)
		}
		return nil, remote("create complaint", err)
	}
	reporter := *user
	complaint.Reporter = &reporter

	c.store.Dispatch(appstate.AddComplaint{Complaint: *complaint})
	log.Infof("[Domain] Complaint %d filed by %s against %s", complaint.ID, user.ID, complaint.OffenderPlate)
	return complaint, nil
}

// attachEvidence stores the processed photo and returns its blob path.
func (c *Controller) attachEvidence(ctx context.Context, userID string, in ComplaintInput, complaint *models.Complaint) (string, error) {
	head := in.Image
	if len(head) > 512 {
		head = head[:512]
	}
	if _, err := upload.ValidateEvidence(in.ImageName, int64(len(in.Image)), head); err != nil {
		return "", err
	}
	photo, err := evidence.Process(bytes.NewReader(in.Image))
	if err != nil {
		return "", invalid("image", "The photo could not be read. Please upload a JPG or PNG image.")
	}

	path := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), evidence.Extension)
	if err := c.blobs.Upload(ctx, models.BUCKET_COMPLAINT_IMAGES, path, bytes.NewReader(photo.Data), int64(len(photo.Data)), evidence.ContentType); err != nil {
		return "", err
	}
	complaint.ImageURL = c.blobs.PublicURL(models.BUCKET_COMPLAINT_IMAGES, path)
	complaint.PhotoTakenAt = photo.TakenAt
	complaint.Latitude = photo.Latitude
	complaint.Longitude = photo.Longitude
	return path, nil
}

// discardBlob removes an upload whose row could not be written.
func (c *Controller) discardBlob(ctx context.Context, bucket, path string) {
	if err := c.blobs.Delete(context.WithoutCancel(ctx), bucket, path); err != nil {
		log.Warnf("[Domain] Could not remove orphaned blob %s/%s: %v", bucket, path, err)
	}
}

// UpdateComplaint records an admin's review. resolved_at follows the status.
func (c *Controller) UpdateComplaint(ctx context.Context, id uint, upd ComplaintUpdate) (*models.Complaint, error) {
	if _, err := c.admin(); err != nil {
		return nil, err
	}
	if err := validateForm(&upd); err != nil {
		return nil, err
	}

	review := repository.ComplaintReview{
		Status:          upd.Status,
		AdminComments:   strings.TrimSpace(upd.AdminComments),
		ResolutionNotes: strings.TrimSpace(upd.ResolutionNotes),
	}
	if upd.Status == models.COMPLAINT_RESOLVED {
		now := c.now()
		review.ResolvedAt = &now
	}

	complaint, err := c.complaints.UpdateReview(ctx, id, review)
	if err != nil {
		return nil, remote("update complaint", err)
	}
	c.store.Dispatch(appstate.UpdateComplaint{Complaint: *complaint})
	return complaint, nil
}

// UploadDocument stores a document for the current user. A second upload of
// the same type replaces the first and sends it back to review.
func (c *Controller) UploadDocument(ctx context.Context, in DocumentInput) (*models.Document, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}
	if !models.IsValidDocumentType(in.Type) {
		return nil, invalid("document_type", "Unknown document type")
	}
	if in.ExpiryDate.IsZero() {
		return nil, ErrExpiryRequired
	}
	if !in.ExpiryDate.After(c.now()) {
		return nil, ErrExpiryInPast
	}
	if len(in.Data) == 0 {
		return nil, invalid("file", "Please choose a file to upload")
	}
	head := in.Data
	if len(head) > 512 {
		head = head[:512]
	}
	mime, err := upload.ValidateDocument(in.FileName, int64(len(in.Data)), head)
	if err != nil {
		return nil, err
	}

	existing, err := c.documents.GetByUserAndType(ctx, user.ID, in.Type)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, remote("lookup document", err)
	}

	path := fmt.Sprintf("%s/%s_%s%s", user.ID, in.Type, uuid.NewString(), upload.Extension(mime))
	if err := c.blobs.Upload(ctx, models.BUCKET_USER_DOCUMENTS, path, bytes.NewReader(in.Data), int64(len(in.Data)), mime); err != nil {
		return nil, err
	}
	fileURL := c.blobs.PublicURL(models.BUCKET_USER_DOCUMENTS, path)

	if existing != nil {
		existing.ResetForReupload(in.FileName, fileURL, in.ExpiryDate)
		if err := c.documents.Update(ctx, existing); err != nil {
			c.discardBlob(ctx, models.BUCKET_USER_DOCUMENTS, path)
			return nil, remote("update document", err)
		}
		c.store.Dispatch(appstate.ReplaceDocument{Document: *existing})
		return existing, nil
	}

	doc := &models.Document{
		UserID:       user.ID,
		DocumentType: in.Type,
		FileName:     in.FileName,
		FileURL:      fileURL,
		ExpiryDate:   in.ExpiryDate,
		Status:       models.DOC_PENDING,
	}
	if err := c.documents.Create(ctx, doc); err != nil {
		c.discardBlob(ctx, models.BUCKET_USER_DOCUMENTS, path)
		return nil, remote("create document", err)
	}
	c.store.Dispatch(appstate.AddDocument{Document: *doc})
	return doc, nil
}

// ReviewDocument approves or rejects a document. Rejections need a reason.
func (c *Controller) ReviewDocument(ctx context.Context, id uint, status, reason string) (*models.Document, error) {
	reviewer, err := c.admin()
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	switch status {
	case models.DOC_APPROVED:
		reason = ""
	case models.DOC_REJECTED:
		if reason == "" {
			return nil, ErrReasonRequired
		}
	default:
		return nil, invalid("status", "Please select a valid status")
	}

	doc, err := c.documents.Review(ctx, id, repository.DocumentReview{
		Status:     status,
		Reason:     reason,
		ReviewedBy: reviewer.ID,
		ReviewedAt: c.now(),
	})
	if err != nil {
		return nil, remote("review document", err)
	}
	c.store.Dispatch(appstate.ReplaceDocument{Document: *doc})
	return doc, nil
}

// FetchDocuments loads the documents of userID. Users may only load their own.
func (c *Controller) FetchDocuments(ctx context.Context, userID string) error {
	user, err := c.actor()
	if err != nil {
		return err
	}
	if userID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	docs, err := c.documents.ListByUser(ctx, userID)
	if err != nil {
		return remote("fetch documents", err)
	}
	c.store.Dispatch(appstate.SetDocuments{Documents: docs})
	return nil
}

// FetchAllDocuments loads every document with its owner. Admin only.
func (c *Controller) FetchAllDocuments(ctx context.Context) error {
	if _, err := c.admin(); err != nil {
		return err
	}
	docs, err := c.documents.ListAll(ctx)
	if err != nil {
		return remote("fetch documents", err)
	}
	c.store.Dispatch(appstate.SetDocuments{Documents: docs})
	return nil
}
