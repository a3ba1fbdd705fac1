package models

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// Complaint status and priority values
const (
	COMPLAINT_PENDING  = "pending"
	COMPLAINT_RESOLVED = "resolved"
	COMPLAINT_REJECTED = "rejected"

	PRIORITY_LOW    = "low"
	PRIORITY_MEDIUM = "medium"
	PRIORITY_HIGH   = "high"

	SUBMITTED_BY_USER  = "user"
	SUBMITTED_BY_ADMIN = "admin"
)

// Document types and verification states
const (
	DOC_LICENSE        = "license"
	DOC_ROADWORTHINESS = "roadworthiness"
	DOC_INSURANCE      = "insurance"

	DOC_PENDING  = "pending"
	DOC_APPROVED = "approved"
	DOC_REJECTED = "rejected"
)

// Blob storage buckets
const (
	BUCKET_COMPLAINT_IMAGES = "complaint-images"
	BUCKET_USER_DOCUMENTS   = "user-documents"
)

var DocumentTypes = []string{DOC_LICENSE, DOC_ROADWORTHINESS, DOC_INSURANCE}

// DocumentTypeName returns the display name shown on dashboards and review pages.
func DocumentTypeName(docType string) string {
	switch docType {
	case DOC_LICENSE:
		return "Driver's License"
	case DOC_ROADWORTHINESS:
		return "Road Worthiness Certificate"
	case DOC_INSURANCE:
		return "Insurance Certificate"
	}
	return docType
}

func IsValidDocumentType(docType string) bool {
	for _, t := range DocumentTypes {
		if t == docType {
			return true
		}
	}
	return false
}
