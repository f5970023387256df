package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/vedalabs/veda/veda-backend/internal/repository/storage"
)

const (
	MaxReceiptSize    = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth   = 50
	MinReceiptHeight  = 50
	ThumbnailWidth    = 200
	DisplayWidth      = 800
	JPEGQuality       = 85
	ReceiptLinkExpiry = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidData          = errors.New("invalid image data")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

// allowedReceiptExtensions maps extensions to content types
var allowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptMetadata carries the stored variants of one receipt scan.
// Paths are object keys, not URLs; access goes through presigned links.
type ReceiptMetadata struct {
	ID           string `json:"id"`
	ThumbnailKey string `json:"thumbnailKey"`
	DisplayKey   string `json:"displayKey"`
	OriginalKey  string `json:"originalKey"`
}

// ReceiptService processes and stores payment receipt scans.
type ReceiptService struct {
	storage storage.ReceiptRepository
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(storage storage.ReceiptRepository) *ReceiptService {
	return &ReceiptService{storage: storage}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// validateAndDecode validates the scan and returns the decoded image
func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedReceiptExtensions[ext]; !ok {
		return nil, ErrReceiptInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrReceiptInvalidData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}

	return img, nil
}

// ProcessAndUpload resizes a receipt scan into its variants and uploads
// all of them under the ledger's key space.
func (s *ReceiptService) ProcessAndUpload(ctx context.Context, schoolID int32, ledgerID int64, data []byte, filename string) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	receiptID := uuid.New().String()

	variants := []struct {
		name     string
		maxWidth int
	}{
		{"thumb", ThumbnailWidth},
		{"display", DisplayWidth},
		{"original", 0}, // 0 means keep original size
	}

	keys := make(map[string]string)

	for _, variant := range variants {
		var processed image.Image
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		} else {
			processed = img
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}

		objectPath := fmt.Sprintf("%d/ledgers/%d/%s_%s.jpg", schoolID, ledgerID, receiptID, variant.name)

		key, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
		if err != nil {
			s.cleanupVariants(ctx, keys)
			return nil, fmt.Errorf("failed to upload %s variant: %w", variant.name, err)
		}

		keys[variant.name] = key
	}

	return &ReceiptMetadata{
		ID:           receiptID,
		ThumbnailKey: keys["thumb"],
		DisplayKey:   keys["display"],
		OriginalKey:  keys["original"],
	}, nil
}

// cleanupVariants removes variants already uploaded during a failed run
func (s *ReceiptService) cleanupVariants(ctx context.Context, keys map[string]string) {
	for _, key := range keys {
		_ = s.storage.Delete(ctx, key)
	}
}

// PresignedURL generates a short-lived access link for a stored receipt.
func (s *ReceiptService) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotConfigured
	}
	return s.storage.GeneratePresignedURL(ctx, objectKey, ReceiptLinkExpiry)
}

// DeleteAllVariants removes every stored variant for one receipt ID.
func (s *ReceiptService) DeleteAllVariants(ctx context.Context, schoolID int32, ledgerID int64, receiptID string) error {
	if !s.IsEnabled() {
		return ErrReceiptStorageNotConfigured
	}
	for _, variant := range []string{"thumb", "display", "original"} {
		key := fmt.Sprintf("%d/ledgers/%d/%s_%s.jpg", schoolID, ledgerID, receiptID, variant)
		if err := s.storage.Delete(ctx, key); err != nil {
			// best effort cleanup
			continue
		}
	}
	return nil
}
