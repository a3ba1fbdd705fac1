package repository

import (
	"context"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"gorm.io/gorm"
)

// complaintRepository implements the ComplaintRepository interface
type complaintRepository struct {
	db *gorm.DB
}

// NewComplaintRepository creates a new complaint repository instance
func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

// withDetails joins the reporter profile and orders newest first.
func (r *complaintRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Reporter").Order("created_at DESC").Order("id DESC")
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *complaintRepository) GetByID(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	err := r.db.WithContext(ctx).Preload("Reporter").First(&complaint, id).Error
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) List(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.withDetails(ctx).Find(&complaints).Error
	return complaints, err
}

func (r *complaintRepository) ListByReporter(ctx context.Context, userID string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.withDetails(ctx).Where("reported_by = ?", userID).Find(&complaints).Error
	return complaints, err
}

func (r *complaintRepository) ListByPlate(ctx context.Context, plate string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.withDetails(ctx).Where("offender_plate = ?", models.NormalizePlate(plate)).Find(&complaints).Error
	return complaints, err
}

// ListVisibleTo returns complaints the user filed or that name the user's plate.
func (r *complaintRepository) ListVisibleTo(ctx context.Context, userID, plate string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	q := r.withDetails(ctx)
	if plate = models.NormalizePlate(plate); plate != "" {
		q = q.Where("reported_by = ? OR offender_plate = ?", userID, plate)
	} else {
		q = q.Where("reported_by = ?", userID)
	}
	err := q.Find(&complaints).Error
	return complaints, err
}

// UpdateReview writes the review fields, including a NULL resolved_at.
func (r *complaintRepository) UpdateReview(ctx context.Context, id uint, review ComplaintReview) (*models.Complaint, error) {
	res := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Updates(map[string]any{
		"status":           review.Status,
		"admin_comments":   review.AdminComments,
		"resolution_notes": review.ResolutionNotes,
		"resolved_at":      review.ResolvedAt,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *complaintRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
