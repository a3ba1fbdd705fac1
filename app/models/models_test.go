package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("0241234567"))
	assert.True(t, IsValidPhone("024-123-45678"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("024123456789"))
}

func TestIsValidPlate(t *testing.T) {
	assert.True(t, IsValidPlate("ABC123"))
	assert.True(t, IsValidPlate("gr 1234-20"))
	assert.False(t, IsValidPlate("AB12"))
	assert.False(t, IsValidPlate("ABC#123"))
	assert.Equal(t, "GR123420", NormalizePlate("gr 1234-20"))
}

func TestProfileValidate(t *testing.T) {
	p := &Profile{ID: "id", FullName: "Ama Mensah", Email: "ama@example.com", PhoneNumber: "0241234567", VehiclePlate: "GR1234", Role: ROLE_USER}
	require.NoError(t, p.Validate())

	p.VehiclePlate = "X"
	assert.Error(t, p.Validate())

	p.VehiclePlate = "GR1234"
	p.Role = "superuser"
	assert.Error(t, p.Validate())
}

func TestProfileDashboardPath(t *testing.T) {
	assert.Equal(t, "/dashboard", (&Profile{Role: ROLE_USER}).DashboardPath())
	assert.Equal(t, "/admin/dashboard", (&Profile{Role: ROLE_ADMIN}).DashboardPath())
	assert.Equal(t, "BADGE-7", (&Profile{BadgeID: "BADGE-7"}).PlateOrBadge())
}

func TestDocumentResetForReupload(t *testing.T) {
	reviewer := "admin-1"
	reviewedAt := time.Now()
	doc := &Document{
		ID:              7,
		DocumentType:    DOC_INSURANCE,
		Status:          DOC_REJECTED,
		RejectionReason: "blurry scan",
		ReviewedBy:      &reviewer,
		ReviewedAt:      &reviewedAt,
	}

	expiry := time.Now().AddDate(1, 0, 0)
	doc.ResetForReupload("insurance.pdf", "https://cdn/insurance.pdf", expiry)

	assert.Equal(t, uint(7), doc.ID)
	assert.Equal(t, DOC_PENDING, doc.Status)
	assert.Empty(t, doc.RejectionReason)
	assert.Nil(t, doc.ReviewedBy)
	assert.Nil(t, doc.ReviewedAt)
	assert.Equal(t, "insurance.pdf", doc.FileName)
	assert.Equal(t, "Insurance Certificate", doc.Name())
}

func TestDocumentDaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	doc := &Document{ExpiryDate: now.Add(36 * time.Hour)}
	assert.Equal(t, 2, doc.DaysUntilExpiry(now))
}

func TestPasswordHashing(t *testing.T) {
	id := &Identity{}
	require.NoError(t, id.SetPassword("supersecret"))
	assert.True(t, id.CheckPassword("supersecret"))
	assert.False(t, id.CheckPassword("wrong"))
}
