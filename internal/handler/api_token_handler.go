package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// APITokenHandler handles API token-related HTTP requests
type APITokenHandler struct {
	apiTokenService *service.APITokenService
	staffRepo       domain.StaffRepository
}

// NewAPITokenHandler creates a new APITokenHandler
func NewAPITokenHandler(apiTokenService *service.APITokenService, staffRepo domain.StaffRepository) *APITokenHandler {
	return &APITokenHandler{
		apiTokenService: apiTokenService,
		staffRepo:       staffRepo,
	}
}

// CreateAPITokenRequest represents the create token request body
type CreateAPITokenRequest struct {
	Description string `json:"description"`
}

// CreateAPIToken handles POST /api/v1/api-tokens (JWT auth only)
func (h *APITokenHandler) CreateAPIToken(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	staff, err := h.staffRepo.GetByAuth0ID(auth0ID)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get staff member")
		return NewUnauthorizedError(c, "Staff member not found")
	}

	var req CreateAPITokenRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if req.Description == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "description", Message: "Description is required"},
		})
	}
	if len(req.Description) > domain.MaxLabelLength {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "description", Message: "Description must be 255 characters or less"},
		})
	}

	result, err := h.apiTokenService.Create(c.Request().Context(), staff.ID, schoolID, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrTooManyAPITokens) {
			return NewValidationError(c, "Maximum number of API tokens reached (10)", nil)
		}
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to create API token")
		return NewInternalError(c, "Failed to create API token")
	}

	log.Info().
		Int32("school_id", schoolID).
		Str("token_id", result.ID.String()).
		Str("description", req.Description).
		Msg("API token created")

	return c.JSON(http.StatusCreated, result)
}

// GetAPITokens handles GET /api/v1/api-tokens (JWT auth only)
func (h *APITokenHandler) GetAPITokens(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	tokens, err := h.apiTokenService.GetBySchool(c.Request().Context(), schoolID)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to get API tokens")
		return NewInternalError(c, "Failed to get API tokens")
	}

	return c.JSON(http.StatusOK, tokens)
}

// RevokeAPIToken handles DELETE /api/v1/api-tokens/:id (JWT auth only)
func (h *APITokenHandler) RevokeAPIToken(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid token ID", nil)
	}

	if err := h.apiTokenService.Revoke(c.Request().Context(), schoolID, tokenID); err != nil {
		if errors.Is(err, domain.ErrAPITokenNotFound) {
			return NewNotFoundError(c, "API token not found")
		}
		log.Error().Err(err).Int32("school_id", schoolID).Str("token_id", tokenID.String()).Msg("Failed to revoke API token")
		return NewInternalError(c, "Failed to revoke API token")
	}

	log.Info().
		Int32("school_id", schoolID).
		Str("token_id", tokenID.String()).
		Msg("API token revoked")

	return c.NoContent(http.StatusNoContent)
}
