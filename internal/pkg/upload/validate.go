package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxDocumentSize is the largest accepted document upload.
const MaxDocumentSize = 50 << 20

// MaxEvidenceSize bounds evidence photos before compression.
const MaxEvidenceSize = 20 << 20

var (
	ErrDocumentType     = errors.New("Please upload a PDF, JPEG, or PNG file")
	ErrDocumentTooLarge = errors.New("File size must be less than 50MB")
	ErrEvidenceType     = errors.New("Only JPG, PNG and GIF photos are supported")
	ErrEvidenceTooLarge = errors.New("Photo must be less than 20MB")
	ErrScriptable       = errors.New("Invalid file type: HTML and XML content is not allowed")
)

var documentExt = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

var evidenceExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ValidateDocument checks a document's extension, size and first bytes.
// It returns the detected mime type.
func ValidateDocument(filename string, size int64, head []byte) (string, error) {
	if size > MaxDocumentSize {
		return "", ErrDocumentTooLarge
	}
	return sniff(filename, head, documentExt, ErrDocumentType)
}

// ValidateEvidence checks an evidence photo's extension, size and first bytes.
func ValidateEvidence(filename string, size int64, head []byte) (string, error) {
	if size > MaxEvidenceSize {
		return "", ErrEvidenceTooLarge
	}
	return sniff(filename, head, evidenceExt, ErrEvidenceType)
}

func sniff(filename string, head []byte, allowed map[string]string, errType error) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowed[ext]
	if !ok {
		return "", errType
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") {
		return "", ErrScriptable
	}

	if detected != want {
		return "", errType
	}
	return detected, nil
}

// Extension returns the canonical file extension for a validated mime type.
func Extension(mime string) string {
	switch mime {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
