package controllers

import (
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/upload"
)

// readFormFile reads at most limit+1 bytes so oversized files are still
// reported as too large by the validators.
func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// HandleDocumentUpload stores a license, roadworthiness or insurance
// document. The outcome is reported through toasts on the dashboard.
func HandleDocumentUpload(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}

	in := domain.DocumentInput{Type: c.Params("type")}
	if raw := c.FormValue("expiry_date"); raw != "" {
		expiry, err := time.Parse("2006-01-02", raw)
		if err != nil {
			b.Toasts.Error("Please enter a valid expiry date")
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		}
		in.ExpiryDate = expiry
	}
	if fh, err := c.FormFile("file"); err == nil {
		data, err := readFormFile(fh, upload.MaxDocumentSize)
		if err != nil {
			b.Toasts.Error("The file could not be read. Please try again.")
			return c.Redirect("/dashboard", fiber.StatusSeeOther)
		}
		in.FileName, in.Data = fh.Filename, data
	}

	// toasts for success and failure are raised by the domain controller
	_, _ = b.Domain.UploadDocumentWithRetry(c.UserContext(), in)
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}
