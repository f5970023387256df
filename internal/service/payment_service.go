package service

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/websocket"
)

// maxApplyAttempts bounds the optimistic-lock retry loop before the
// conflict is surfaced to the caller.
const maxApplyAttempts = 3

// PaymentService is the only writer path that mutates a ledger after
// creation. It appends a payment and recomputes every aggregate from the
// full payment history under a version compare-and-swap.
type PaymentService struct {
	ledgerRepo     domain.LedgerRepository
	fallbackTotal  decimal.Decimal
	eventPublisher websocket.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(ledgerRepo domain.LedgerRepository, fallbackTotal decimal.Decimal) *PaymentService {
	return &PaymentService{
		ledgerRepo:    ledgerRepo,
		fallbackTotal: fallbackTotal,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *PaymentService) publishEvent(schoolID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(schoolID, event)
	}
}

// ApplyPayment appends a payment to the ledger and reconciles it.
// Either the payment lands and every aggregate is updated, or the ledger
// is unchanged. A concurrent writer triggers a re-read and re-apply; the
// conflict only reaches the caller after maxApplyAttempts.
func (s *PaymentService) ApplyPayment(schoolID int32, ledgerID int64, payment *domain.Payment) (*domain.FeeLedger, error) {
	payment.LedgerID = ledgerID
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}

	ledger, err := s.applyWithRetry(schoolID, ledgerID, payment)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("ledger_id", ledgerID).
		Str("amount", payment.Amount.StringFixed(2)).
		Str("method", string(payment.Method)).
		Str("status", string(ledger.Status)).
		Msg("Payment applied")

	s.publishEvent(schoolID, websocket.PaymentRecorded(map[string]interface{}{
		"ledgerId":   ledger.ID,
		"studentId":  ledger.StudentID.String(),
		"amount":     payment.Amount.StringFixed(2),
		"method":     string(payment.Method),
		"paidAmount": ledger.PaidAmount.StringFixed(2),
		"dueAmount":  ledger.DueAmount.StringFixed(2),
		"status":     string(ledger.Status),
	}))

	return ledger, nil
}

// ApplyAdjustment appends a compensating negative entry. History stays
// immutable; the adjustment nets against earlier payments at reconcile.
func (s *PaymentService) ApplyAdjustment(schoolID int32, ledgerID int64, payment *domain.Payment) (*domain.FeeLedger, error) {
	payment.LedgerID = ledgerID
	if err := payment.ValidateAdjustment(); err != nil {
		return nil, err
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}

	ledger, err := s.applyWithRetry(schoolID, ledgerID, payment)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("ledger_id", ledgerID).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("Adjustment applied")

	s.publishEvent(schoolID, websocket.PaymentAdjusted(map[string]interface{}{
		"ledgerId":   ledger.ID,
		"studentId":  ledger.StudentID.String(),
		"amount":     payment.Amount.StringFixed(2),
		"paidAmount": ledger.PaidAmount.StringFixed(2),
		"dueAmount":  ledger.DueAmount.StringFixed(2),
		"status":     string(ledger.Status),
	}))

	return ledger, nil
}

// applyWithRetry runs the read-append-reconcile-write cycle under the
// ledger's version counter.
func (s *PaymentService) applyWithRetry(schoolID int32, ledgerID int64, payment *domain.Payment) (*domain.FeeLedger, error) {
	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		ledger, err := s.ledgerRepo.GetByID(schoolID, ledgerID)
		if err != nil {
			return nil, err
		}

		// Recompute from the complete history, not incrementally, so the
		// invariants hold even if earlier entries were corrected out of band.
		ledger.Payments = append(ledger.Payments, *payment)
		ledger.Reconcile(s.fallbackTotal)

		updated, err := s.ledgerRepo.AppendPayment(ledger, payment)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}

		lastErr = err
		log.Debug().
			Int64("ledger_id", ledgerID).
			Int("attempt", attempt+1).
			Msg("Version conflict applying payment, retrying")
	}
	return nil, lastErr
}
