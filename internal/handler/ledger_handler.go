package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// LedgerHandler handles fee ledger HTTP requests
type LedgerHandler struct {
	ledgerService    *service.LedgerService
	statementService *service.StatementService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *service.LedgerService, statementService *service.StatementService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService:    ledgerService,
		statementService: statementService,
	}
}

// ChargeItemRequest is one charge line item in a create request
type ChargeItemRequest struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// CreateLedgerRequest represents the create ledger request body
type CreateLedgerRequest struct {
	StudentID      string              `json:"studentId"`
	AcademicYear   string              `json:"academicYear"`
	Term           string              `json:"term"`
	Program        string              `json:"program"`
	Section        string              `json:"section"`
	CourseDuration string              `json:"courseDuration"`
	YearNumber     int32               `json:"yearNumber"`
	Items          []ChargeItemRequest `json:"items,omitempty"`
	DueDate        *string             `json:"dueDate,omitempty"` // RFC 3339
}

// UpdateCorrectionsRequest represents the admin corrections request body
type UpdateCorrectionsRequest struct {
	DueDate     *string `json:"dueDate,omitempty"` // RFC 3339
	OverdueFine *string `json:"overdueFine,omitempty"`
}

// ChargeItemResponse is one charge line item in API responses
type ChargeItemResponse struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// LedgerResponse represents a fee ledger in API responses
type LedgerResponse struct {
	ID             int64                `json:"id"`
	StudentID      string               `json:"studentId"`
	AcademicYear   string               `json:"academicYear"`
	Term           string               `json:"term"`
	Program        string               `json:"program"`
	Section        string               `json:"section"`
	CourseDuration string               `json:"courseDuration"`
	YearNumber     int32                `json:"yearNumber"`
	Items          []ChargeItemResponse `json:"items"`
	TotalDue       string               `json:"totalDue"`
	PaidAmount     string               `json:"paidAmount"`
	DueAmount      string               `json:"dueAmount"`
	OverdueFine    string               `json:"overdueFine"`
	Status         string               `json:"status"`
	DueDate        *string              `json:"dueDate,omitempty"`
	LastPayment    *string              `json:"lastPayment,omitempty"`
	Version        int32                `json:"version"`
	CreatedAt      string               `json:"createdAt"`
	UpdatedAt      string               `json:"updatedAt"`
}

// CreateLedger handles POST /api/v1/fee-ledgers
func (h *LedgerHandler) CreateLedger(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	var req CreateLedgerRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "studentId", Message: "Must be a valid UUID"},
		})
	}

	items := make([]domain.ChargeLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "items", Message: "Item amounts must be valid decimal numbers"},
			})
		}
		items = append(items, domain.ChargeLineItem{Label: item.Label, Amount: amount})
	}

	ledger := &domain.FeeLedger{
		StudentID:    studentID,
		AcademicYear: req.AcademicYear,
		Term:         domain.Term(req.Term),
		Program:      req.Program,
		Section:      req.Section,
		Duration:     domain.CourseDuration(req.CourseDuration),
		YearNumber:   req.YearNumber,
		Items:        items,
	}

	if req.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "dueDate", Message: "Must be a valid RFC 3339 timestamp"},
			})
		}
		ledger.DueDate = &dueDate
	}

	created, err := h.ledgerService.CreateLedger(schoolID, ledger)
	if err != nil {
		if errors.Is(err, domain.ErrStudentNotFound) {
			return NewNotFoundError(c, "Student not found")
		}
		var fieldErr []ValidationError
		switch {
		case errors.Is(err, domain.ErrLedgerStudentRequired):
			fieldErr = []ValidationError{{Field: "studentId", Message: "Student is required"}}
		case errors.Is(err, domain.ErrLedgerAcademicYear):
			fieldErr = []ValidationError{{Field: "academicYear", Message: "Academic year is required"}}
		case errors.Is(err, domain.ErrLedgerTermInvalid):
			fieldErr = []ValidationError{{Field: "term", Message: "Term is not recognized"}}
		case errors.Is(err, domain.ErrLedgerDurationInvalid):
			fieldErr = []ValidationError{{Field: "courseDuration", Message: "Course duration is not recognized"}}
		case errors.Is(err, domain.ErrLedgerYearInvalid):
			fieldErr = []ValidationError{{Field: "yearNumber", Message: "Year number must be 1 or 2"}}
		case errors.Is(err, domain.ErrLedgerYearMismatch):
			fieldErr = []ValidationError{{Field: "yearNumber", Message: "Year number must be 1 for a one-year course"}}
		}
		if fieldErr != nil {
			return NewValidationError(c, "Validation failed", fieldErr)
		}
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to create ledger")
		return NewInternalError(c, "Failed to create ledger")
	}

	return c.JSON(http.StatusCreated, toLedgerResponse(created))
}

// GetLedger handles GET /api/v1/fee-ledgers/:id
// Returns the student statement projection, not the raw ledger.
func (h *LedgerHandler) GetLedger(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	ledgerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid ledger ID", nil)
	}

	statement, err := h.statementService.GetStatement(schoolID, ledgerID)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "Fee ledger not found")
		}
		if errors.Is(err, domain.ErrStudentNotFound) {
			return NewNotFoundError(c, "Student not found")
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("ledger_id", ledgerID).Msg("Failed to get statement")
		return NewInternalError(c, "Failed to get statement")
	}

	return c.JSON(http.StatusOK, statement)
}

// ListLedgers handles GET /api/v1/fee-ledgers
func (h *LedgerHandler) ListLedgers(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	ledgers, err := h.ledgerService.ListLedgers(schoolID)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to list ledgers")
		return NewInternalError(c, "Failed to list ledgers")
	}

	response := make([]LedgerResponse, len(ledgers))
	for i, ledger := range ledgers {
		response[i] = toLedgerResponse(ledger)
	}
	return c.JSON(http.StatusOK, response)
}

// UpdateCorrections handles PATCH /api/v1/fee-ledgers/:id
func (h *LedgerHandler) UpdateCorrections(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	ledgerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid ledger ID", nil)
	}

	var req UpdateCorrectionsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "dueDate", Message: "Must be a valid RFC 3339 timestamp"},
			})
		}
		dueDate = &parsed
	}

	var overdueFine *decimal.Decimal
	if req.OverdueFine != nil {
		fine, err := decimal.NewFromString(*req.OverdueFine)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "overdueFine", Message: "Must be a valid decimal number"},
			})
		}
		overdueFine = &fine
	}

	ledger, err := h.ledgerService.UpdateCorrections(schoolID, ledgerID, dueDate, overdueFine)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "Fee ledger not found")
		}
		if errors.Is(err, domain.ErrLedgerFineNegative) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "overdueFine", Message: "Must not be negative"},
			})
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("ledger_id", ledgerID).Msg("Failed to update corrections")
		return NewInternalError(c, "Failed to update corrections")
	}

	return c.JSON(http.StatusOK, toLedgerResponse(ledger))
}

func toLedgerResponse(ledger *domain.FeeLedger) LedgerResponse {
	items := make([]ChargeItemResponse, len(ledger.Items))
	for i, item := range ledger.Items {
		items[i] = ChargeItemResponse{Label: item.Label, Amount: item.Amount.StringFixed(2)}
	}

	resp := LedgerResponse{
		ID:             ledger.ID,
		StudentID:      ledger.StudentID.String(),
		AcademicYear:   ledger.AcademicYear,
		Term:           string(ledger.Term),
		Program:        ledger.Program,
		Section:        ledger.Section,
		CourseDuration: string(ledger.Duration),
		YearNumber:     ledger.YearNumber,
		Items:          items,
		TotalDue:       ledger.TotalDue.StringFixed(2),
		PaidAmount:     ledger.PaidAmount.StringFixed(2),
		DueAmount:      ledger.DueAmount.StringFixed(2),
		OverdueFine:    ledger.OverdueFine.StringFixed(2),
		Status:         string(ledger.Status),
		Version:        ledger.Version,
		CreatedAt:      ledger.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      ledger.UpdatedAt.Format(time.RFC3339),
	}

	if ledger.DueDate != nil {
		s := ledger.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	if ledger.LastPayment != nil {
		s := ledger.LastPayment.Format(time.RFC3339)
		resp.LastPayment = &s
	}

	return resp
}
