package models

import (
	"encoding/json"
	"time"
)

type Complaint struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"type:varchar(200)" json:"title" validate:"required,max=200"`
	Description     string     `gorm:"type:text" json:"description" validate:"required"`
	Location        string     `gorm:"type:varchar(255)" json:"location" validate:"required,max=255"`
	Category        string     `gorm:"type:varchar(50);index" json:"category" validate:"required"`
	OffenderPlate   string     `gorm:"type:varchar(20);index" json:"offender_plate" validate:"required,max=20"`
	ReportedBy      string     `gorm:"type:char(36);index" json:"reported_by"`
	SubmittedBy     string     `gorm:"type:varchar(10);default:'user'" json:"submitted_by" validate:"oneof=user admin"`
	Status          string     `gorm:"type:varchar(20);default:'pending';index" json:"status" validate:"oneof=pending resolved rejected"`
	Priority        string     `gorm:"type:varchar(10);default:'low'" json:"priority" validate:"oneof=low medium high"`
	ImageURL        string     `gorm:"type:varchar(500);default:null" json:"image_url,omitempty"`
	PhotoTakenAt    *time.Time `gorm:"default:null" json:"photo_taken_at,omitempty"`
	Latitude        *float64   `gorm:"default:null" json:"latitude,omitempty"`
	Longitude       *float64   `gorm:"default:null" json:"longitude,omitempty"`
	AdminComments   string     `gorm:"type:text" json:"admin_comments"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes"`
	ResolvedAt      *time.Time `gorm:"default:null" json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Reporter *Profile `gorm:"foreignKey:ReportedBy;references:ID" json:"-" validate:"-"`
}

// ReporterSummary is what other users may see of a reporter.
type ReporterSummary struct {
	FullName     string `json:"full_name"`
	PlateOrBadge string `json:"plate_or_badge,omitempty"`
}

// MarshalJSON replaces the reporter profile with its summary so contact
// details never reach the owner of the reported plate.
func (c Complaint) MarshalJSON() ([]byte, error) {
	type plain Complaint
	out := struct {
		plain
		Reporter *ReporterSummary `json:"reporter,omitempty"`
	}{plain: plain(c)}
	if c.Reporter != nil {
		out.Reporter = &ReporterSummary{FullName: c.Reporter.FullName, PlateOrBadge: c.Reporter.PlateOrBadge()}
	}
	return json.Marshal(out)
}

func (c *Complaint) Validate() error {
	return Validator().Struct(c)
}

// ReporterName is empty when the reporter profile was not loaded.
func (c *Complaint) ReporterName() string {
	if c.Reporter == nil {
		return ""
	}
	return c.Reporter.FullName
}

func (c *Complaint) IsOfficial() bool {
	return c.SubmittedBy == SUBMITTED_BY_ADMIN
}
