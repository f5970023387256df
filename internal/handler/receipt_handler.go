package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// ReceiptHandler handles receipt scan HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// UploadReceiptResponse represents the upload response
type UploadReceiptResponse struct {
	ID           string `json:"id"`
	ThumbnailKey string `json:"thumbnailKey"`
	DisplayKey   string `json:"displayKey"`
	OriginalKey  string `json:"originalKey"`
}

// UploadReceipt handles POST /api/v1/fee-ledgers/:id/receipts
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	ledgerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid ledger ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	metadata, err := h.receiptService.ProcessAndUpload(c.Request().Context(), schoolID, ledgerID, data, file.Filename)
	if err != nil {
		switch err {
		case service.ErrReceiptTooLarge:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File too large. Maximum size is 5MB"},
			})
		case service.ErrReceiptInvalidFormat:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid format. Supported: JPEG, PNG, WebP"},
			})
		case service.ErrReceiptTooSmall:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Image too small. Minimum 50x50 pixels"},
			})
		case service.ErrReceiptInvalidData:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid image data"},
			})
		default:
			log.Error().Err(err).Int32("school_id", schoolID).Int64("ledger_id", ledgerID).Msg("Failed to upload receipt")
			return NewInternalError(c, "Failed to upload receipt")
		}
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("ledger_id", ledgerID).
		Str("receipt_id", metadata.ID).
		Msg("Receipt uploaded")

	return c.JSON(http.StatusCreated, UploadReceiptResponse{
		ID:           metadata.ID,
		ThumbnailKey: metadata.ThumbnailKey,
		DisplayKey:   metadata.DisplayKey,
		OriginalKey:  metadata.OriginalKey,
	})
}

// GetReceiptURL handles GET /api/v1/fee-ledgers/:id/receipts/url?key=...
// Returns a short-lived presigned link for a stored receipt object.
func (h *ReceiptHandler) GetReceiptURL(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt storage not configured")
	}

	key := c.QueryParam("key")
	if key == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "key", Message: "Object key is required"},
		})
	}

	// Keys are namespaced by school; reject cross-tenant access.
	prefix := strconv.FormatInt(int64(schoolID), 10) + "/"
	if len(key) < len(prefix) || key[:len(prefix)] != prefix {
		return NewForbiddenError(c, "Receipt does not belong to this school")
	}

	url, err := h.receiptService.PresignedURL(c.Request().Context(), key)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Str("key", key).Msg("Failed to presign receipt URL")
		return NewInternalError(c, "Failed to generate receipt URL")
	}

	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
