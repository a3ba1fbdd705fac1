package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = gorm.ErrRecordNotFound

// ProfileRepository defines the interface for profile-related database operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByPlate(ctx context.Context, plate string) (bool, error)
	Update(ctx context.Context, profile *models.Profile) error
	Count(ctx context.Context) (int64, error)
}

// ComplaintReview holds the fields an admin may change on a complaint.
type ComplaintReview struct {
	Status          string
	AdminComments   string
	ResolutionNotes string
	ResolvedAt      *time.Time
}

// ComplaintRepository defines the interface for complaint-related database operations
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id uint) (*models.Complaint, error)
	List(ctx context.Context) ([]models.Complaint, error)
	ListByReporter(ctx context.Context, userID string) ([]models.Complaint, error)
	ListByPlate(ctx context.Context, plate string) ([]models.Complaint, error)
	ListVisibleTo(ctx context.Context, userID, plate string) ([]models.Complaint, error)
	UpdateReview(ctx context.Context, id uint, review ComplaintReview) (*models.Complaint, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// DocumentReview holds the fields recorded when an admin reviews a document.
type DocumentReview struct {
	Status     string
	Reason     string
	ReviewedBy string
	ReviewedAt time.Time
}

// DocumentRepository defines the interface for document-related database operations
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	GetByUserAndType(ctx context.Context, userID, docType string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
	Review(ctx context.Context, id uint, review DocumentReview) (*models.Document, error)
}

// IdentityRepository backs the platform's authentication records
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) error

	CreateSession(ctx context.Context, session *models.AuthSession) error
	GetSession(ctx context.Context, id string) (*models.AuthSession, error)
	GetSessionByRefreshHash(ctx context.Context, hash string) (*models.AuthSession, error)
	RotateRefreshHash(ctx context.Context, id, hash string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, id string, at time.Time) error
	RevokeOtherSessions(ctx context.Context, identityID, keepID string, at time.Time) error
	// ConsumeToken marks a single-use token as redeemed. It reports false
	// when the token was redeemed before.
	ConsumeToken(ctx context.Context, token *models.ConsumedToken) (bool, error)

	GetProviderAccount(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error)
	SaveProviderAccount(ctx context.Context, account *models.ProviderAccount) error
}

// Repositories holds all repository instances
type Repositories struct {
	Profile   ProfileRepository
	Complaint ComplaintRepository
	Document  DocumentRepository
	Identity  IdentityRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile:   NewProfileRepository(db),
		Complaint: NewComplaintRepository(db),
		Document:  NewDocumentRepository(db),
		Identity:  NewIdentityRepository(db),
	}
}
