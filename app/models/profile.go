package models

import (
	"time"
)

// Profile is the application-level user record. Its ID equals the identity ID.
type Profile struct {
	ID           string    `gorm:"primaryKey;type:char(36)" json:"id"`
	FullName     string    `gorm:"type:varchar(150)" json:"full_name" validate:"required,min=2,max=150"`
	Email        string    `gorm:"type:varchar(200);index" json:"email" validate:"required,email,max=200"`
	PhoneNumber  string    `gorm:"type:varchar(20);index" json:"phone_number" validate:"omitempty,phone"`
	VehiclePlate string    `gorm:"type:varchar(20);index" json:"vehicle_plate" validate:"omitempty,plate"`
	BadgeID      string    `gorm:"type:varchar(50);default:null" json:"badge_id,omitempty"`
	Department   string    `gorm:"type:varchar(150);default:null" json:"department,omitempty"`
	Role         string    `gorm:"type:varchar(20);default:'user'" json:"role" validate:"oneof=user admin"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) Validate() error {
	return Validator().Struct(p)
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == ROLE_ADMIN
}

// PlateOrBadge returns the identifier shown next to the reporter's name.
func (p *Profile) PlateOrBadge() string {
	if p == nil {
		return ""
	}
	if p.VehiclePlate != "" {
		return p.VehiclePlate
	}
	return p.BadgeID
}

// DashboardPath is where a freshly signed-in user lands.
func (p *Profile) DashboardPath() string {
	if p.IsAdmin() {
		return "/admin/dashboard"
	}
	return "/dashboard"
}
