package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// PaymentHandler handles payment application HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPaymentRequest represents the record payment request body
type RecordPaymentRequest struct {
	Amount        string  `json:"amount"`
	Method        string  `json:"method"`
	PaidAt        *string `json:"paidAt,omitempty"` // RFC 3339, defaults to now
	TransactionID *string `json:"transactionId,omitempty"`
	Remarks       *string `json:"remarks,omitempty"`
}

// RecordPayment handles POST /api/v1/fee-ledgers/:id/payments
func (h *PaymentHandler) RecordPayment(c echo.Context) error {
	return h.record(c, false)
}

// RecordAdjustment handles POST /api/v1/fee-ledgers/:id/adjustments
// Adjustments are compensating negative entries; the history is never edited.
func (h *PaymentHandler) RecordAdjustment(c echo.Context) error {
	return h.record(c, true)
}

func (h *PaymentHandler) record(c echo.Context, adjustment bool) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	ledgerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid ledger ID", nil)
	}

	var req RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	payment := &domain.Payment{
		Amount:        amount,
		Method:        domain.PaymentMethod(req.Method),
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
		CollectedBy:   middleware.GetStaffID(c),
	}

	if req.PaidAt != nil {
		paidAt, err := time.Parse(time.RFC3339, *req.PaidAt)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "paidAt", Message: "Must be a valid RFC 3339 timestamp"},
			})
		}
		payment.PaidAt = paidAt
	}

	var ledger *domain.FeeLedger
	if adjustment {
		ledger, err = h.paymentService.ApplyAdjustment(schoolID, ledgerID, payment)
	} else {
		ledger, err = h.paymentService.ApplyPayment(schoolID, ledgerID, payment)
	}
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "Fee ledger not found")
		}
		if errors.Is(err, domain.ErrVersionConflict) {
			return NewConflictError(c, "Ledger was modified concurrently, please retry")
		}
		var fieldErr []ValidationError
		switch {
		case errors.Is(err, domain.ErrPaymentAmountInvalid):
			fieldErr = []ValidationError{{Field: "amount", Message: "Amount must be positive"}}
		case errors.Is(err, domain.ErrAdjustmentNotNegative):
			fieldErr = []ValidationError{{Field: "amount", Message: "Adjustment amount must be negative"}}
		case errors.Is(err, domain.ErrAdjustmentNeedsRemarks):
			fieldErr = []ValidationError{{Field: "remarks", Message: "Adjustment requires remarks"}}
		case errors.Is(err, domain.ErrPaymentMethodInvalid):
			fieldErr = []ValidationError{{Field: "method", Message: "Payment method is not recognized"}}
		}
		if fieldErr != nil {
			return NewValidationError(c, "Validation failed", fieldErr)
		}
		log.Error().Err(err).Int32("school_id", schoolID).Int64("ledger_id", ledgerID).Msg("Failed to apply payment")
		return NewInternalError(c, "Failed to apply payment")
	}

	return c.JSON(http.StatusCreated, toLedgerResponse(ledger))
}
