package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	pdfHead  = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj")
	pngHead  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHead = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	htmlHead = []byte("<!DOCTYPE html><html><script>alert(1)</script>")
)

func TestValidateDocument(t *testing.T) {
	mime, err := ValidateDocument("license.pdf", 1024, pdfHead)
	assert.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	mime, err = ValidateDocument("scan.JPG", 1024, jpegHead)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	_, err = ValidateDocument("notes.docx", 1024, pdfHead)
	assert.ErrorIs(t, err, ErrDocumentType)

	_, err = ValidateDocument("fake.pdf", 1024, pngHead)
	assert.ErrorIs(t, err, ErrDocumentType)

	_, err = ValidateDocument("huge.pdf", MaxDocumentSize+1, pdfHead)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	_, err = ValidateDocument("page.png", 10, htmlHead)
	assert.ErrorIs(t, err, ErrScriptable)
}

func TestValidateEvidence(t *testing.T) {
	_, err := ValidateEvidence("car.png", 2048, pngHead)
	assert.NoError(t, err)

	_, err = ValidateEvidence("car.pdf", 2048, pdfHead)
	assert.ErrorIs(t, err, ErrEvidenceType)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("application/pdf"))
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
}
