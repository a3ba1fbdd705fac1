package models

import (
	"time"
)

// Document is a user's supporting document. (UserID, DocumentType) is unique;
// a re-upload overwrites the existing row.
type Document struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"type:char(36);uniqueIndex:idx_documents_user_type" json:"user_id"`
	DocumentType    string     `gorm:"type:varchar(20);uniqueIndex:idx_documents_user_type" json:"document_type" validate:"oneof=license roadworthiness insurance"`
	FileName        string     `gorm:"type:varchar(255)" json:"file_name" validate:"required,max=255"`
	FileURL         string     `gorm:"type:varchar(500)" json:"file_url"`
	ExpiryDate      time.Time  `gorm:"type:date" json:"expiry_date"`
	Status          string     `gorm:"type:varchar(20);default:'pending';index" json:"status" validate:"oneof=pending approved rejected"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	ReviewedBy      *string    `gorm:"type:char(36);default:null" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `gorm:"default:null" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Owner *Profile `gorm:"foreignKey:UserID;references:ID" json:"owner,omitempty" validate:"-"`
}

func (d *Document) Validate() error {
	return Validator().Struct(d)
}

func (d *Document) Name() string {
	return DocumentTypeName(d.DocumentType)
}

// DaysUntilExpiry rounds up partial days.
func (d *Document) DaysUntilExpiry(now time.Time) int {
	diff := d.ExpiryDate.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// ResetForReupload overwrites the file fields and returns the row to review.
func (d *Document) ResetForReupload(fileName, fileURL string, expiry time.Time) {
	d.FileName = fileName
	d.FileURL = fileURL
	d.ExpiryDate = expiry
	d.Status = DOC_PENDING
	d.RejectionReason = ""
	d.ReviewedBy = nil
	d.ReviewedAt = nil
}
