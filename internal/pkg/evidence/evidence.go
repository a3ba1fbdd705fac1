package evidence

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

const (
	MaxWidth    = 800
	JPEGQuality = 80
	ContentType = "image/jpeg"
	Extension   = ".jpg"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Photo is a compressed evidence image plus what its EXIF block told us.
type Photo struct {
	Data      []byte
	Width     int
	Height    int
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
}

// Process reads an uploaded photo, extracts its capture time and location,
// scales it down to MaxWidth and re-encodes it as JPEG.
func Process(r io.Reader) (*Photo, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read evidence image: %w", err)
	}

	photo := &Photo{}
	readExif(raw, photo)

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode evidence image: %w", err)
	}
	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode evidence image: %w", err)
	}

	photo.Data = out.Bytes()
	photo.Width = img.Bounds().Dx()
	photo.Height = img.Bounds().Dy()
	return photo, nil
}

func readExif(raw []byte, photo *Photo) {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		// Plenty of phones strip EXIF on share.
		log.Debugf("[Evidence] No EXIF data: %v", err)
		return
	}
	if dt, err := x.DateTime(); err == nil {
		photo.TakenAt = &dt
	}
	if lat, long, err := x.LatLong(); err == nil {
		photo.Latitude = &lat
		photo.Longitude = &long
	}
}

// IsImage reports whether the header looks like a decodable image.
func IsImage(head []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(head))
	return err == nil
}
