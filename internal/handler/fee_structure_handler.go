package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// FeeStructureHandler handles fee structure catalog HTTP requests
type FeeStructureHandler struct {
	structureService *service.FeeStructureService
}

// NewFeeStructureHandler creates a new FeeStructureHandler
func NewFeeStructureHandler(structureService *service.FeeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{structureService: structureService}
}

// AdditionalChargeRequest is one recurring charge in a structure request
type AdditionalChargeRequest struct {
	Label     string `json:"label"`
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
	PayableTo string `json:"payableTo"`
}

// YearScheduleRequest is one year's charge template in a structure request
type YearScheduleRequest struct {
	Year  int32               `json:"year"`
	Items []ChargeItemRequest `json:"items"`
}

// FeeStructureRequest represents the create/update structure request body
type FeeStructureRequest struct {
	CourseName        string                    `json:"courseName"`
	Session           string                    `json:"session"`
	DurationYears     int32                     `json:"durationYears"`
	Years             []YearScheduleRequest     `json:"years"`
	AdditionalCharges []AdditionalChargeRequest `json:"additionalCharges,omitempty"`
}

// CreateStructure handles POST /api/v1/fee-structures
func (h *FeeStructureHandler) CreateStructure(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	structure, err := h.bindStructure(c)
	if err != nil {
		return bindStructureError(c, err)
	}

	created, err := h.structureService.CreateStructure(schoolID, structure)
	if err != nil {
		if fieldErr := structureValidationError(err); fieldErr != nil {
			return NewValidationError(c, "Validation failed", fieldErr)
		}
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to create fee structure")
		return NewInternalError(c, "Failed to create fee structure")
	}

	return c.JSON(http.StatusCreated, created)
}

// GetStructure handles GET /api/v1/fee-structures/:id
func (h *FeeStructureHandler) GetStructure(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid structure ID", nil)
	}

	structure, err := h.structureService.GetStructure(schoolID, id)
	if err != nil {
		if errors.Is(err, domain.ErrStructureNotFound) {
			return NewNotFoundError(c, "Fee structure not found")
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("structure_id", id).Msg("Failed to get fee structure")
		return NewInternalError(c, "Failed to get fee structure")
	}

	return c.JSON(http.StatusOK, structure)
}

// ListStructures handles GET /api/v1/fee-structures
func (h *FeeStructureHandler) ListStructures(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	structures, err := h.structureService.ListStructures(schoolID)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to list fee structures")
		return NewInternalError(c, "Failed to list fee structures")
	}

	return c.JSON(http.StatusOK, structures)
}

// UpdateStructure handles PUT /api/v1/fee-structures/:id
func (h *FeeStructureHandler) UpdateStructure(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid structure ID", nil)
	}

	structure, bindErr := h.bindStructure(c)
	if bindErr != nil {
		return bindStructureError(c, bindErr)
	}

	updated, err := h.structureService.UpdateStructure(schoolID, id, structure)
	if err != nil {
		if errors.Is(err, domain.ErrStructureNotFound) {
			return NewNotFoundError(c, "Fee structure not found")
		}
		if fieldErr := structureValidationError(err); fieldErr != nil {
			return NewValidationError(c, "Validation failed", fieldErr)
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("structure_id", id).Msg("Failed to update fee structure")
		return NewInternalError(c, "Failed to update fee structure")
	}

	return c.JSON(http.StatusOK, updated)
}

// DeactivateStructure handles DELETE /api/v1/fee-structures/:id
func (h *FeeStructureHandler) DeactivateStructure(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid structure ID", nil)
	}

	if err := h.structureService.DeactivateStructure(schoolID, id); err != nil {
		if errors.Is(err, domain.ErrStructureNotFound) {
			return NewNotFoundError(c, "Fee structure not found")
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("structure_id", id).Msg("Failed to deactivate fee structure")
		return NewInternalError(c, "Failed to deactivate fee structure")
	}

	return c.NoContent(http.StatusNoContent)
}

// bindStructure failure sentinels, mapped to responses by bindStructureError
var (
	errStructureBody         = errors.New("invalid structure request body")
	errStructureItemAmount   = errors.New("invalid structure item amount")
	errStructureChargeAmount = errors.New("invalid additional charge amount")
)

func (h *FeeStructureHandler) bindStructure(c echo.Context) (*domain.FeeStructure, error) {
	var req FeeStructureRequest
	if err := c.Bind(&req); err != nil {
		return nil, errStructureBody
	}

	years := make([]domain.YearSchedule, 0, len(req.Years))
	for _, year := range req.Years {
		items := make([]domain.ChargeLineItem, 0, len(year.Items))
		for _, item := range year.Items {
			amount, err := decimal.NewFromString(item.Amount)
			if err != nil {
				return nil, errStructureItemAmount
			}
			items = append(items, domain.ChargeLineItem{Label: item.Label, Amount: amount})
		}
		years = append(years, domain.YearSchedule{Year: year.Year, Items: items})
	}

	charges := make([]domain.AdditionalCharge, 0, len(req.AdditionalCharges))
	for _, charge := range req.AdditionalCharges {
		amount, err := decimal.NewFromString(charge.Amount)
		if err != nil {
			return nil, errStructureChargeAmount
		}
		charges = append(charges, domain.AdditionalCharge{
			Label:     charge.Label,
			Amount:    amount,
			Frequency: domain.ChargeFrequency(charge.Frequency),
			PayableTo: charge.PayableTo,
		})
	}

	return &domain.FeeStructure{
		CourseName:        req.CourseName,
		Session:           req.Session,
		DurationYears:     req.DurationYears,
		Years:             years,
		AdditionalCharges: charges,
	}, nil
}

// bindStructureError maps a bindStructure sentinel to its 400 response
func bindStructureError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errStructureItemAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "years", Message: "Item amounts must be valid decimal numbers"},
		})
	case errors.Is(err, errStructureChargeAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "additionalCharges", Message: "Charge amounts must be valid decimal numbers"},
		})
	}
	return NewValidationError(c, "Invalid request body", nil)
}

func structureValidationError(err error) []ValidationError {
	switch {
	case errors.Is(err, domain.ErrStructureCourseEmpty):
		return []ValidationError{{Field: "courseName", Message: "Course name is required"}}
	case errors.Is(err, domain.ErrStructureSessionEmpty):
		return []ValidationError{{Field: "session", Message: "Session is required"}}
	case errors.Is(err, domain.ErrStructureDuration):
		return []ValidationError{{Field: "durationYears", Message: "Duration must be at least one year"}}
	case errors.Is(err, domain.ErrStructureYearsMismatch):
		return []ValidationError{{Field: "years", Message: "Year schedules must cover the course duration"}}
	}
	return nil
}
