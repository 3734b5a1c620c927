package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"solar-inventory-backend/internal/apperr"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxImageBytes = 5 << 20
	maxImageWidth = 1600
)

// NormalizeImage decodes any supported image, caps its width and re-encodes
// it as JPEG.
func NormalizeImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Validation("image could not be decoded")
	}
	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, apperr.System("encode image", err)
	}
	return buf.Bytes(), nil
}

// Upload is an image taken from a request. Key is set only when the bytes
// were stored by us; a plain image_url leaves it empty.
type Upload struct {
	URL string
	Key string
}

// SaveImage normalizes and stores data under prefix/<uuid>.jpg.
func SaveImage(ctx context.Context, store Store, prefix string, data []byte) (string, error) {
	up, err := saveImage(ctx, store, prefix, data)
	return up.URL, err
}

func saveImage(ctx context.Context, store Store, prefix string, data []byte) (Upload, error) {
	if len(data) > MaxImageBytes {
		return Upload{}, apperr.Validation("image exceeds %d bytes", MaxImageBytes)
	}
	normalized, err := NormalizeImage(data)
	if err != nil {
		return Upload{}, err
	}
	key := fmt.Sprintf("%s/%s.jpg", strings.Trim(prefix, "/"), uuid.NewString())
	url, err := store.Put(ctx, key, normalized, "image/jpeg")
	if err != nil {
		return Upload{}, apperr.System("store image", err)
	}
	return Upload{URL: url, Key: key}, nil
}

// FromRequest returns the proof image of a request: an uploaded multipart
// `image` file is stored, otherwise the `image_url` form value is used as is.
// URL is empty when neither is present.
func FromRequest(c *fiber.Ctx, store Store, prefix string) (Upload, error) {
	fh, err := c.FormFile("image")
	if err == nil && fh != nil {
		if store == nil {
			return Upload{}, apperr.Validation("image uploads are not configured")
		}
		f, err := fh.Open()
		if err != nil {
			return Upload{}, apperr.Validation("image could not be read")
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
		if err != nil {
			return Upload{}, apperr.Validation("image could not be read")
		}
		return saveImage(c.UserContext(), store, prefix, data)
	}
	return Upload{URL: strings.TrimSpace(c.FormValue("image_url"))}, nil
}

// Discard removes an upload whose operation failed after it was stored.
func Discard(ctx context.Context, store Store, up Upload, logger *logrus.Logger) {
	if up.Key == "" || store == nil {
		return
	}
	if err := store.Delete(ctx, up.Key); err != nil {
		logger.WithFields(logrus.Fields{"key": up.Key}).Warnf("discard orphaned image: %v", err)
	}
}
