package models

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10,11}$`)
	plateRegex = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the phone and plate rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		})
		_ = validate.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
			return IsValidPlate(fl.Field().String())
		})
	})
	return validate
}

// IsValidPhone accepts 10 or 11 digits after stripping formatting characters.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(nonDigit.ReplaceAllString(phone, ""))
}

// IsValidPlate accepts 6 to 8 alphanumerics after stripping spaces and dashes.
func IsValidPlate(plate string) bool {
	return plateRegex.MatchString(NormalizePlate(plate))
}

func NormalizePlate(plate string) string {
	plate = strings.ReplaceAll(plate, " ", "")
	plate = strings.ReplaceAll(plate, "-", "")
	return strings.ToUpper(plate)
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	return nonDigit.ReplaceAllString(phone, "")
}
