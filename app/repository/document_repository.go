package repository

import (
	"context"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"gorm.io/gorm"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update saves every column so cleared review fields are written as NULL.
func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Omit("Owner").Save(doc).Error
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Preload("Owner").First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) GetByUserAndType(ctx context.Context, userID, docType string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("user_id = ? AND document_type = ?", userID, docType).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) ListAll(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).Preload("Owner").Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// Review records the verdict. Approval stores an empty reason.
func (r *documentRepository) Review(ctx context.Context, id uint, review DocumentReview) (*models.Document, error) {
	reason := review.Reason
	if review.Status == models.DOC_APPROVED {
		reason = ""
	}
	res := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(map[string]any{
		"status":           review.Status,
		"rejection_reason": reason,
		"reviewed_by":      review.ReviewedBy,
		"reviewed_at":      review.ReviewedAt,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
