package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/TrafficWatch/app/models"
)

// Registration is the sign-up form.
type Registration struct {
	FullName        string `form:"full_name" validate:"required,min=2,max=150"`
	Email           string `form:"email" validate:"required,email,max=200"`
	Password        string `form:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
	PhoneNumber     string `form:"phone_number" validate:"required,phone"`
	VehiclePlate    string `form:"vehicle_plate" validate:"required,plate"`
}

var registrationMessages = map[string]struct{ field, message string }{
	"FullName":        {"full_name", "Full name is required"},
	"Email":           {"email", "Please enter a valid email address"},
	"Password":        {"password", "Password must be at least 8 characters"},
	"ConfirmPassword": {"confirm_password", "Passwords do not match"},
	"PhoneNumber":     {"phone_number", "Please enter a valid phone number (10-11 digits)"},
	"VehiclePlate":    {"vehicle_plate", "Please enter a valid vehicle plate number (6-8 letters or digits)"},
}

func (r *Registration) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = models.NormalizePhone(r.PhoneNumber)
	r.VehiclePlate = models.NormalizePlate(r.VehiclePlate)
}

// Validate checks the form and returns FieldErrors on failure.
func (r *Registration) Validate() error {
	err := models.Validator().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := FieldErrors{}
	for _, fe := range verrs {
		if m, ok := registrationMessages[fe.StructField()]; ok {
			fields[m.field] = m.message
		}
	}
	return fields
}
