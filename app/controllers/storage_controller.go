package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

// HandleBlob serves evidence images and documents from the in-memory store
// under the same URLs the S3 public endpoint would use.
func HandleBlob(blobs *platform.MemoryBlobStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, contentType, ok := blobs.Object(c.Params("bucket"), c.Params("*"))
		if !ok {
			return fiber.ErrNotFound
		}
		if contentType != "" {
			c.Set(fiber.HeaderContentType, contentType)
		}
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		return c.SendStream(body)
	}
}
