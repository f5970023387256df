package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentAmountInvalid   = errors.New("payment amount must be positive")
	ErrPaymentMethodInvalid   = errors.New("payment method is not recognized")
	ErrPaymentLedgerRequired  = errors.New("ledger ID is required")
	ErrAdjustmentNotNegative  = errors.New("adjustment amount must be negative")
	ErrAdjustmentNeedsRemarks = errors.New("adjustment requires remarks")
)

// PaymentMethod is the channel a fee payment was collected through.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

// ValidMethods lists every accepted payment method.
var ValidMethods = map[PaymentMethod]bool{
	MethodCash:         true,
	MethodCard:         true,
	MethodUPI:          true,
	MethodBankTransfer: true,
	MethodCheque:       true,
}

// Payment is a single append-only entry in a ledger's payment history.
// Entries are never edited or removed; corrections are appended as
// compensating negative-amount entries.
type Payment struct {
	ID            int64           `json:"id"`
	LedgerID      int64           `json:"ledgerId"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidAt        time.Time       `json:"paidAt"`
	TransactionID *string         `json:"transactionId,omitempty"`
	Remarks       *string         `json:"remarks,omitempty"`
	CollectedBy   uuid.UUID       `json:"collectedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Validate checks the invariants for a regular (non-adjustment) payment.
func (p *Payment) Validate() error {
	if p.LedgerID <= 0 {
		return ErrPaymentLedgerRequired
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	if !ValidMethods[p.Method] {
		return ErrPaymentMethodInvalid
	}
	return nil
}

// ValidateAdjustment checks the invariants for a compensating entry.
// Adjustments carry a negative amount and must say why they exist.
func (p *Payment) ValidateAdjustment() error {
	if p.LedgerID <= 0 {
		return ErrPaymentLedgerRequired
	}
	if p.Amount.GreaterThanOrEqual(decimal.Zero) {
		return ErrAdjustmentNotNegative
	}
	if !ValidMethods[p.Method] {
		return ErrPaymentMethodInvalid
	}
	if p.Remarks == nil || *p.Remarks == "" {
		return ErrAdjustmentNeedsRemarks
	}
	return nil
}
