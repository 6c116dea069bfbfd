package filestorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/usecase"
)

// Bucket is where image bytes end up. Delete must treat a missing key as
// success.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]usecase.StoredObject, error)
	URL(key string) string
}

// declared content type -> file extension
var mimeTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// detected content type each declared type must agree with
var sniffed = map[string]string{
	"image/png":  "image/png",
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
}

// Store validates, names and persists uploaded images.
// implements usecase.AssetStore
type Store struct {
	bucket   Bucket
	maxBytes int64
}

func New(b Bucket) *Store {
	return &Store{bucket: b, maxBytes: config.MAX_IMAGE_BYTES}
}

func errUnsupported() error {
	return usecase.NewError(usecase.KindUnsupportedMediaType, "invalid_mime_type", "Invalid mime type!", nil)
}

func (s *Store) Accept(ctx context.Context, r io.Reader, contentType string) (usecase.Asset, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := mimeTypes[contentType]; !ok {
		return usecase.Asset{}, errUnsupported()
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return usecase.Asset{}, usecase.NewError(usecase.KindUnavailable, "upload_not_read", "Could not read the uploaded image.", err)
	}
	if int64(len(data)) > s.maxBytes {
		return usecase.Asset{}, usecase.NewError(usecase.KindPayloadTooLarge, "file_too_large", "File too large.", nil)
	}

	if !mimetype.Detect(data).Is(sniffed[contentType]) {
		return usecase.Asset{}, errUnsupported()
	}

	// the extension comes from the declared type, never from the client's file name
	key := path.Join(config.IMAGES_ROOT, uuid.NewString()+"."+mimeTypes[contentType])
	if err := s.bucket.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return usecase.Asset{}, usecase.NewError(usecase.KindUnavailable, "asset_not_stored", "Could not store the image, please try again.", err)
	}

	return usecase.Asset{
		Path:        key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Colors:      palette(data),
	}, nil
}

// palette returns the image's dominant colours as a JSON array of hex
// strings, or nil when the image cannot be decoded.
func palette(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	colors := dominantcolor.FindN(img, 4)
	hex := make([]string, 0, len(colors))
	for _, c := range colors {
		hex = append(hex, dominantcolor.Hex(c))
	}
	b, err := json.Marshal(hex)
	if err != nil {
		return nil
	}
	return b
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if !managed(key) {
		return fmt.Errorf("asset %q is outside %s/", key, config.IMAGES_ROOT)
	}
	return s.bucket.Delete(ctx, key)
}

func (s *Store) List(ctx context.Context) ([]usecase.StoredObject, error) {
	return s.bucket.List(ctx, config.IMAGES_ROOT+"/")
}

func (s *Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.bucket.URL(key)
}

func managed(key string) bool {
	return path.Clean(key) == key &&
		strings.HasPrefix(key, config.IMAGES_ROOT+"/") &&
		!strings.Contains(key, "..")
}
