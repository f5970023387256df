package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentPending is the status shown for every statement line item.
// Payments are tracked as an aggregate balance against the whole ledger,
// not allocated to individual line items.
const InstallmentPending = "pending"

// StatementTotals carries the reconciled balance plus a progress percent.
type StatementTotals struct {
	TotalDue    decimal.Decimal `json:"totalDue"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	DueAmount   decimal.Decimal `json:"dueAmount"`
	OverdueFine decimal.Decimal `json:"overdueFine"`
	Progress    int             `json:"progress"` // 0-100
}

// InstallmentLine presents one charge line item with a due-timeline label.
type InstallmentLine struct {
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
	Timeline string          `json:"timeline"`
	Status   string          `json:"status"`
}

// PaymentEntry is one row of a statement's payment history.
type PaymentEntry struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidAt        time.Time       `json:"paidAt"`
	TransactionID *string         `json:"transactionId,omitempty"`
	Remarks       *string         `json:"remarks,omitempty"`
}

// StudentStatement is the per-ledger detail projection.
type StudentStatement struct {
	LedgerID       int64             `json:"ledgerId"`
	Student        *Student          `json:"student"`
	AcademicYear   string            `json:"academicYear"`
	Term           Term              `json:"term"`
	Status         LedgerStatus      `json:"status"`
	Totals         StatementTotals   `json:"totals"`
	Installments   []InstallmentLine `json:"installments"`
	PaymentHistory []PaymentEntry    `json:"paymentHistory"` // newest first
}
